package mapper

import (
	"time"

	"github.com/vibast-solutions/ms-go-orders/app/entity"
	"github.com/vibast-solutions/ms-go-orders/app/service"
	"github.com/vibast-solutions/ms-go-orders/app/types"
)

func TransactionToResponse(item *entity.Transaction) *types.Transaction {
	if item == nil {
		return nil
	}

	result := &types.Transaction{
		ID:                                item.ID,
		Type:                              item.Type,
		TransactionGroup:                  item.TransactionGroup,
		FromCollectiveID:                  item.FromCollectiveID,
		CollectiveID:                      item.CollectiveID,
		Amount:                            item.Amount,
		Currency:                          item.Currency,
		HostCurrency:                      item.HostCurrency,
		AmountInHostCurrency:              item.AmountInHostCurrency,
		HostFeeInHostCurrency:             item.HostFeeInHostCurrency,
		PlatformFeeInHostCurrency:         item.PlatformFeeInHostCurrency,
		PaymentProcessorFeeInHostCurrency: item.PaymentProcessorFeeInHostCurrency,
		HostCurrencyFxRate:                item.HostCurrencyFxRate,
		NetAmountInCollectiveCurrency:     item.NetAmountInCollectiveCurrency,
		Description:                       item.Description,
		CreatedAt:                         item.CreatedAt.UTC().Format(time.RFC3339),
	}
	if item.OrderID != nil {
		result.OrderID = *item.OrderID
	}

	return result
}

func TransactionPairToResponse(pair *service.TransactionPair) *types.TransactionPairResponse {
	if pair == nil {
		return nil
	}

	return &types.TransactionPairResponse{
		Credit: TransactionToResponse(pair.Credit),
		Debit:  TransactionToResponse(pair.Debit),
	}
}
