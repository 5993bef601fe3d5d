package gormstore

import (
	"encoding/json"
	"time"

	cartdomain "github.com/mgallardo/gamestore/internal/domain/cart"
	purchasedomain "github.com/mgallardo/gamestore/internal/domain/purchase"
)

type productRow struct {
	ID          string `gorm:"primaryKey;size:64"`
	Name        string `gorm:"size:255"`
	Description string
	Price       int64
	Stock       int
	Photo       string `gorm:"size:1024"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (productRow) TableName() string { return "products" }

type cartRow struct {
	UserID    string `gorm:"primaryKey;size:64"`
	Kind      string `gorm:"primaryKey;size:8"`
	Items     string `gorm:"type:json"`
	UpdatedAt time.Time
}

func (cartRow) TableName() string { return "carts" }

type purchaseRow struct {
	ID            string `gorm:"primaryKey;size:64"`
	UserID        string `gorm:"index;size:64"`
	TransactionID string `gorm:"uniqueIndex;size:128"`
	Total         int64
	Date          time.Time
	BuyOrder      string `gorm:"size:32"`
	PaymentType   string `gorm:"size:8"`
	Items         string `gorm:"type:json"`
}

func (purchaseRow) TableName() string { return "purchases" }

type transactionRow struct {
	Token     string `gorm:"primaryKey;size:128"`
	UserID    string `gorm:"index;size:64"`
	BuyOrder  string `gorm:"size:32"`
	Flag      string `gorm:"size:8"`
	Finalized bool
	CreatedAt time.Time
}

func (transactionRow) TableName() string { return "transactions" }

func marshalCartItems(items []cartdomain.LineItem) (string, error) {
	b, err := json.Marshal(items)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func unmarshalCartItems(raw string) ([]cartdomain.LineItem, error) {
	if raw == "" {
		return []cartdomain.LineItem{}, nil
	}
	var items []cartdomain.LineItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, err
	}
	return items, nil
}

func marshalPurchaseItems(items []purchasedomain.Item) (string, error) {
	b, err := json.Marshal(items)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func unmarshalPurchaseItems(raw string) ([]purchasedomain.Item, error) {
	if raw == "" {
		return []purchasedomain.Item{}, nil
	}
	var items []purchasedomain.Item
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, err
	}
	return items, nil
}
