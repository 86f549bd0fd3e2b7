package service

import (
	"context"
	"regexp"
	"strings"

	"github.com/brauwerk/brauwerk-backend/internal/production/repository"
	"github.com/brauwerk/brauwerk-backend/pkg/errors"
	"github.com/brauwerk/brauwerk-backend/pkg/logger"
)

// packagingKeywords maps a packaging kind to the multilingual keywords used by
// the substring fallback. Packaging requests arrive with free-text hints
// ("0.5l Flasche", "crown caps") rather than a guaranteed item ID, so
// resolution has to degrade gracefully.
var packagingKeywords = map[string][]string{
	"bottle": {"bottle", "flasche", "botella"},
	"label":  {"label", "etikett", "etiqueta"},
	"cap":    {"cap", "kronkorken", "crown", "chapa"},
	"keg":    {"keg", "fass", "barril"},
	"can":    {"can", "dose", "lata"},
	"carton": {"carton", "karton", "case", "tray"},
}

// packagingKinds fixes the order kinds are probed in, so a hint mentioning
// two kinds always resolves the same way.
var packagingKinds = []string{"bottle", "label", "cap", "keg", "can", "carton"}

// sizeTokenPattern extracts a numeric size token from a free-text hint, e.g.
// "500" from "500ml bottle".
var sizeTokenPattern = regexp.MustCompile(`\d+`)

// ResolveRequest describes a logical item lookup
type ResolveRequest struct {
	// ItemID is the explicit item reference, if the caller has one
	ItemID *string

	// Category restricts all non-explicit strategies
	Category repository.ItemCategory

	// TypeHint is the loosely-typed free-text hint ("0.5l bottle", "labels")
	TypeHint string
}

// ItemResolver maps a logical request to a concrete inventory item using an
// ordered list of matcher strategies: explicit ID, exact size-token name
// match, multilingual keyword substring match, then first active item of the
// category. Each strategy is deterministic and testable on its own; the first
// match wins.
type ItemResolver struct {
	itemRepo *repository.ItemRepository
	logger   *logger.Logger
}

// NewItemResolver creates a new item resolver
func NewItemResolver(itemRepo *repository.ItemRepository, log *logger.Logger) *ItemResolver {
	return &ItemResolver{
		itemRepo: itemRepo,
		logger:   log,
	}
}

// resolveStrategy attempts one resolution step. A NotFound error means "try
// the next strategy"; any other error aborts resolution.
type resolveStrategy func(ctx context.Context, req ResolveRequest) (*repository.InventoryItem, error)

// Resolve runs the matcher strategies in order and returns the first match,
// or NotFound when no strategy matches.
func (r *ItemResolver) Resolve(ctx context.Context, req ResolveRequest) (*repository.InventoryItem, error) {
	strategies := []resolveStrategy{
		r.byExplicitID,
		r.bySizeToken,
		r.byKeywords,
		r.byCategoryDefault,
	}

	for _, strategy := range strategies {
		item, err := strategy(ctx, req)
		if err != nil {
			if errors.Is(err, errors.ErrNotFound) {
				continue
			}
			return nil, err
		}
		if item != nil {
			return item, nil
		}
	}

	return nil, errors.NotFound("inventory item")
}

// byExplicitID resolves the explicit item reference, scoped to the caller's
// tenant
func (r *ItemResolver) byExplicitID(ctx context.Context, req ResolveRequest) (*repository.InventoryItem, error) {
	if req.ItemID == nil || *req.ItemID == "" {
		return nil, errors.NotFound("inventory item")
	}
	return r.itemRepo.GetByID(ctx, *req.ItemID)
}

// bySizeToken matches an item whose name equals the numeric size token
// extracted from the type hint
func (r *ItemResolver) bySizeToken(ctx context.Context, req ResolveRequest) (*repository.InventoryItem, error) {
	token := sizeTokenPattern.FindString(req.TypeHint)
	if token == "" {
		return nil, errors.NotFound("inventory item")
	}
	return r.itemRepo.FindActiveByExactName(ctx, req.Category, token)
}

// byKeywords matches an item by multilingual keyword substrings appropriate
// to the packaging kind mentioned in the type hint
func (r *ItemResolver) byKeywords(ctx context.Context, req ResolveRequest) (*repository.InventoryItem, error) {
	keywords := keywordsForHint(req.TypeHint)
	if len(keywords) == 0 {
		return nil, errors.NotFound("inventory item")
	}
	return r.itemRepo.FindActiveByNameKeywords(ctx, req.Category, keywords)
}

// byCategoryDefault falls back to the first active item of the requested
// category
func (r *ItemResolver) byCategoryDefault(ctx context.Context, req ResolveRequest) (*repository.InventoryItem, error) {
	if !req.Category.Valid() {
		return nil, errors.NotFound("inventory item")
	}
	return r.itemRepo.FirstActiveByCategory(ctx, req.Category)
}

// keywordsForHint returns the keyword set for the packaging kind the hint
// mentions, or nil when the hint names no known kind
func keywordsForHint(hint string) []string {
	lower := strings.ToLower(hint)
	for _, kind := range packagingKinds {
		for _, kw := range packagingKeywords[kind] {
			if strings.Contains(lower, kw) {
				return packagingKeywords[kind]
			}
		}
	}
	return nil
}
