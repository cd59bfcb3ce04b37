package browse

import (
	"context"

	"stealthcompany.com/archaeoseeker/internal/catalog"
)

// RelatedCatalog looks up the items shown under a detail view
type RelatedCatalog interface {
	GetArtifactsInMuseum(ctx context.Context, museumID string) ([]catalog.Item, error)
	GetItemsByIds(ctx context.Context, ids []string) ([]catalog.Item, error)
}

// RelatedItems returns a museum's artifacts, or the museums an artifact is
// displayed in. Other items have no related items.
func RelatedItems(ctx context.Context, cat RelatedCatalog, item catalog.Item) (Related, error) {
	switch {
	case item.Type == catalog.TypeMuseum:
		items, err := cat.GetArtifactsInMuseum(ctx, item.ID)
		if err != nil {
			return Related{}, err
		}
		return Related{Title: TitleMuseumContents, Items: items}, nil
	case item.Type == catalog.TypeArtifact && len(item.MuseumIDs) > 0:
		items, err := cat.GetItemsByIds(ctx, item.MuseumIDs)
		if err != nil {
			return Related{}, err
		}
		return Related{Title: TitleDisplayedIn, Items: items}, nil
	default:
		return Related{}, nil
	}
}
