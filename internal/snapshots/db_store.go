package snapshots

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/angelmondragon/cartsync/internal/cart"
	"github.com/angelmondragon/cartsync/pkg/db/models"
	"github.com/angelmondragon/cartsync/pkg/types"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DBStore persists snapshots in the cart_snapshots table.
type DBStore struct {
	db *gorm.DB
}

var _ cart.SnapshotStore = (*DBStore)(nil)

func NewDBStore(db *gorm.DB) (*DBStore, error) {
	if db == nil {
		return nil, errors.New("gorm db required")
	}
	return &DBStore{db: db}, nil
}

func (s *DBStore) Load(ctx context.Context, userID string) (cart.Snapshot, bool, error) {
	var row models.CartSnapshot
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return cart.Snapshot{}, false, nil
	}
	if err != nil {
		return cart.Snapshot{}, false, fmt.Errorf("load cart snapshot: %w", err)
	}

	items := []types.CartItem{}
	if err := json.Unmarshal(row.Items, &items); err != nil {
		return cart.Snapshot{}, false, fmt.Errorf("decode cart snapshot items: %w", err)
	}
	return cart.Snapshot{
		Items:      items,
		CartLoaded: row.CartLoaded,
		UpdatedAt:  row.UpdatedAt,
	}, true, nil
}

func (s *DBStore) Save(ctx context.Context, userID string, snap cart.Snapshot) error {
	items := snap.Items
	if items == nil {
		items = []types.CartItem{}
	}
	encoded, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode cart snapshot items: %w", err)
	}

	row := models.CartSnapshot{
		UserID:     userID,
		Items:      datatypes.JSON(encoded),
		ItemCount:  cart.State{Items: items}.ItemCount(),
		CartLoaded: snap.CartLoaded,
		UpdatedAt:  snap.UpdatedAt,
	}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"items", "item_count", "cart_loaded", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("save cart snapshot: %w", err)
	}
	return nil
}
