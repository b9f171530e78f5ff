package model_test

import (
	"testing"

	"pos/internal/domain/model"

	"github.com/stretchr/testify/assert"
)

func TestRecomputePurchaseOrderStatus(t *testing.T) {
	tests := []struct {
		name  string
		items []model.PurchaseOrderItem
		want  model.PurchaseOrderStatus
	}{
		{
			name: "未入荷はPENDING",
			items: []model.PurchaseOrderItem{
				{OrderedQty: 5}, {OrderedQty: 3},
			},
			want: model.PurchaseOrderPending,
		},
		{
			name: "一部入荷はPARTIAL",
			items: []model.PurchaseOrderItem{
				{OrderedQty: 5, ReceivedQty: 5}, {OrderedQty: 3},
			},
			want: model.PurchaseOrderPartial,
		},
		{
			name: "明細内の部分入荷もPARTIAL",
			items: []model.PurchaseOrderItem{
				{OrderedQty: 5, ReceivedQty: 2},
			},
			want: model.PurchaseOrderPartial,
		},
		{
			name: "全明細満了でRECEIVED",
			items: []model.PurchaseOrderItem{
				{OrderedQty: 5, ReceivedQty: 5}, {OrderedQty: 3, ReceivedQty: 3},
			},
			want: model.PurchaseOrderReceived,
		},
		{
			name:  "明細なしはPENDING",
			items: nil,
			want:  model.PurchaseOrderPending,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, model.RecomputePurchaseOrderStatus(tt.items))
		})
	}
}

func TestNextPurchaseOrderStatus_NeverRegresses(t *testing.T) {
	// 前進はする
	assert.Equal(t, model.PurchaseOrderPartial,
		model.NextPurchaseOrderStatus(model.PurchaseOrderPending, model.PurchaseOrderPartial))
	assert.Equal(t, model.PurchaseOrderReceived,
		model.NextPurchaseOrderStatus(model.PurchaseOrderPartial, model.PurchaseOrderReceived))

	// 後退はしない
	assert.Equal(t, model.PurchaseOrderReceived,
		model.NextPurchaseOrderStatus(model.PurchaseOrderReceived, model.PurchaseOrderPartial))
	assert.Equal(t, model.PurchaseOrderPartial,
		model.NextPurchaseOrderStatus(model.PurchaseOrderPartial, model.PurchaseOrderPending))
}
