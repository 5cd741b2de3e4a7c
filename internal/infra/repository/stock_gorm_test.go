package repository

import (
	"testing"

	repo "shop/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 同じ商品の行は合算される。[(p,2),(p,2)]は在庫3では通らない
// 必要量4として扱う。
func TestSumQtyByProduct(t *testing.T) {
	need, err := sumQtyByProduct([]repo.StockLine{
		{ProductID: 10, Qty: 2},
		{ProductID: 10, Qty: 2},
		{ProductID: 11, Qty: 1},
	})

	require.NoError(t, err)
	assert.Equal(t, map[int64]int64{10: 4, 11: 1}, need)
}

func TestSumQtyByProduct_InvalidQty(t *testing.T) {
	_, err := sumQtyByProduct([]repo.StockLine{{ProductID: 10, Qty: 0}})
	assert.Error(t, err)

	_, err = sumQtyByProduct([]repo.StockLine{{ProductID: 10, Qty: -1}})
	assert.Error(t, err)
}
