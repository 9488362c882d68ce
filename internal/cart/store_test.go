package cart

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestAddItem(t *testing.T) {
	t.Parallel()

	s := NewStore(nil)
	p := Product{ID: "p1", Name: "Rose Serum", UnitPrice: price("1250.00")}

	s.AddItem(p)
	s.AddItem(p)

	c := s.Snapshot()
	require.Len(t, c.Items, 1)
	assert.Equal(t, 2, c.Items[0].Quantity)
	assert.True(t, c.Items[0].LineTotal.Equal(price("2500.00")))
	assert.Equal(t, 2, c.TotalQuantity)
	assert.True(t, c.TotalAmount.Equal(price("2500.00")))
}

func TestRemoveOneUnitDeletesLastUnit(t *testing.T) {
	t.Parallel()

	s := NewStore(nil)
	s.AddItem(Product{ID: "p1", Name: "Serum", UnitPrice: price("1250.00")})
	s.AddItem(Product{ID: "p2", Name: "Clay Mask", UnitPrice: price("800.00")})

	s.RemoveOneUnit("p1")

	c := s.Snapshot()
	require.Len(t, c.Items, 1)
	assert.Equal(t, "p2", c.Items[0].ProductID)
	assert.Equal(t, 1, c.TotalQuantity)
	assert.True(t, c.TotalAmount.Equal(price("800.00")))
}

func TestRemoveOneUnitUnknownProductIsNoop(t *testing.T) {
	t.Parallel()

	s := NewStore(nil)
	s.AddItem(Product{ID: "p1", UnitPrice: price("100")})

	s.RemoveOneUnit("missing")

	c := s.Snapshot()
	assert.Equal(t, 1, c.TotalQuantity)
	assert.True(t, c.TotalAmount.Equal(price("100")))
}

func TestDeleteItemRemovesWholeLine(t *testing.T) {
	t.Parallel()

	s := NewStore(nil)
	p := Product{ID: "p1", UnitPrice: price("300.50")}
	s.AddItem(p)
	s.AddItem(p)
	s.AddItem(p)
	s.AddItem(Product{ID: "p2", UnitPrice: price("99.99")})

	s.DeleteItem("p1")

	c := s.Snapshot()
	require.Len(t, c.Items, 1)
	assert.Equal(t, 1, c.TotalQuantity)
	assert.True(t, c.TotalAmount.Equal(price("99.99")))

	s.DeleteItem("missing") // no-op
	assert.Equal(t, 1, s.Snapshot().TotalQuantity)
}

func TestClear(t *testing.T) {
	t.Parallel()

	s := NewStore(nil)
	s.AddItem(Product{ID: "p1", UnitPrice: price("10")})
	s.AddItem(Product{ID: "p2", UnitPrice: price("20")})

	s.Clear()

	c := s.Snapshot()
	assert.Empty(t, c.Items)
	assert.Equal(t, 0, c.TotalQuantity)
	assert.True(t, c.TotalAmount.IsZero())
}

func TestSnapshotIsDetached(t *testing.T) {
	t.Parallel()

	s := NewStore(nil)
	s.AddItem(Product{ID: "p1", UnitPrice: price("10")})

	c := s.Snapshot()
	c.Items[0].Quantity = 99

	assert.Equal(t, 1, s.Snapshot().Items[0].Quantity)
}

// TestAggregatesReconcile runs randomized operation sequences and re-sums
// the aggregates from the line items after every single step.
func TestAggregatesReconcile(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(42))
	products := make([]Product, 6)
	for i := range products {
		products[i] = Product{
			ID:        fmt.Sprintf("p%d", i),
			UnitPrice: decimal.NewFromInt(int64(rng.Intn(5000) + 1)).Div(decimal.NewFromInt(100)),
		}
	}

	s := NewStore(nil)
	for step := 0; step < 2000; step++ {
		p := products[rng.Intn(len(products))]
		switch rng.Intn(10) {
		case 0:
			s.Clear()
		case 1, 2:
			s.DeleteItem(p.ID)
		case 3, 4, 5:
			s.RemoveOneUnit(p.ID)
		default:
			s.AddItem(p)
		}
		assertReconciled(t, s.Snapshot(), step)
	}
}

func assertReconciled(t *testing.T, c Cart, step int) {
	t.Helper()

	sumQty := 0
	sumAmount := decimal.Zero
	seen := map[string]bool{}
	for _, it := range c.Items {
		require.Greaterf(t, it.Quantity, 0, "step %d: zero-quantity line survived", step)
		require.Falsef(t, seen[it.ProductID], "step %d: duplicate product line", step)
		seen[it.ProductID] = true
		require.Truef(t, it.LineTotal.Equal(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity)))),
			"step %d: line total drifted for %s", step, it.ProductID)
		sumQty += it.Quantity
		sumAmount = sumAmount.Add(it.LineTotal)
	}
	require.Equalf(t, sumQty, c.TotalQuantity, "step %d: total quantity drifted", step)
	require.Truef(t, sumAmount.Equal(c.TotalAmount), "step %d: total amount drifted (%s != %s)",
		step, sumAmount, c.TotalAmount)
}
