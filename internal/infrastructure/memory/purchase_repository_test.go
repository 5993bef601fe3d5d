package memory

import (
	"context"
	"sync"
	"testing"

	domain "github.com/mgallardo/gamestore/internal/domain/purchase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func purchase(t *testing.T, id, transactionID string) *domain.Purchase {
	t.Helper()
	p, err := domain.New(id, "user-1", transactionID, 1000, "BO-1", "VD", []domain.Item{
		{ProductID: "p1", Quantity: 1, UnitPrice: 1000, Subtotal: 1000},
	})
	require.NoError(t, err)
	return p
}

func TestCreateIfAbsent(t *testing.T) {
	repo := NewPurchaseRepository()
	ctx := context.Background()

	created, err := repo.CreateIfAbsent(ctx, purchase(t, "pur-1", "tok-1"))
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.CreateIfAbsent(ctx, purchase(t, "pur-2", "tok-1"))
	require.NoError(t, err)
	assert.False(t, created, "same transaction id must not create a second purchase")

	got, err := repo.FindByTransactionID(ctx, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, "pur-1", got.ID, "the first writer wins")
}

func TestCreateIfAbsent_Concurrent(t *testing.T) {
	repo := NewPurchaseRepository()
	ctx := context.Background()

	const goroutines = 16
	var wg sync.WaitGroup
	results := make(chan bool, goroutines)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			created, err := repo.CreateIfAbsent(ctx, purchase(t, "pur-"+string(rune('a'+n)), "tok-1"))
			assert.NoError(t, err)
			results <- created
		}(i)
	}
	wg.Wait()
	close(results)

	var winners int
	for created := range results {
		if created {
			winners++
		}
	}
	assert.Equal(t, 1, winners, "exactly one concurrent insert may win")

	_, err := repo.FindByTransactionID(ctx, "tok-1")
	require.NoError(t, err)
}

func TestListByUser_NewestFirst(t *testing.T) {
	repo := NewPurchaseRepository()
	ctx := context.Background()

	older := purchase(t, "pur-1", "tok-1")
	newer := purchase(t, "pur-2", "tok-2")
	newer.Date = newer.Date.Add(1)

	_, err := repo.CreateIfAbsent(ctx, older)
	require.NoError(t, err)
	_, err = repo.CreateIfAbsent(ctx, newer)
	require.NoError(t, err)

	got, err := repo.ListByUser(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "pur-2", got[0].ID)

	got, err = repo.ListByUser(ctx, "someone-else")
	require.NoError(t, err)
	assert.Empty(t, got)
}
