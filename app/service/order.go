package service

import (
	"context"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/vibast-solutions/ms-go-orders/app/entity"
	"github.com/vibast-solutions/ms-go-orders/app/gateway"
	"github.com/vibast-solutions/ms-go-orders/app/ledger"
	"github.com/vibast-solutions/ms-go-orders/config"
)

const defaultPlatformFeePercent = int64(5)

type orderRepository interface {
	FindByID(ctx context.Context, id uint64) (*entity.Order, error)
	MarkProcessed(ctx context.Context, id uint64, now time.Time) error
}

type paymentMethodRepository interface {
	FindByID(ctx context.Context, id uint64) (*entity.PaymentMethod, error)
	SetCustomerID(ctx context.Context, id uint64, customerID string, now time.Time) (bool, error)
	SetHostCustomerID(ctx context.Context, id uint64, hostAccount, customerID string, now time.Time) (bool, error)
	MarkConfirmed(ctx context.Context, id uint64, now time.Time) error
}

type subscriptionRepository interface {
	FindByID(ctx context.Context, id uint64) (*entity.Subscription, error)
	Activate(ctx context.Context, id uint64, stripeSubscriptionID string, now time.Time) error
}

type transactionWriter interface {
	CreatePair(ctx context.Context, credit, debit *entity.Transaction) error
}

type activityRepository interface {
	Create(ctx context.Context, activity *entity.Activity) error
}

type memberRepository interface {
	EnsureBackerRole(ctx context.Context, collectiveID, userID uint64, now time.Time) error
}

type collectiveRepository interface {
	FindByID(ctx context.Context, id uint64) (*entity.Collective, error)
	HostStripeAccount(ctx context.Context, collectiveID uint64) (string, error)
}

type OrderService struct {
	orderRepo      orderRepository
	methodRepo     paymentMethodRepository
	subRepo        subscriptionRepository
	txRepo         transactionWriter
	activityRepo   activityRepository
	memberRepo     memberRepository
	collectiveRepo collectiveRepository
	gw             gateway.Client
	ordersCfg      config.OrdersConfig
}

func NewOrderService(
	orderRepo orderRepository,
	methodRepo paymentMethodRepository,
	subRepo subscriptionRepository,
	txRepo transactionWriter,
	activityRepo activityRepository,
	memberRepo memberRepository,
	collectiveRepo collectiveRepository,
	gw gateway.Client,
	ordersCfg config.OrdersConfig,
) *OrderService {
	if ordersCfg.PlatformFeePercent <= 0 {
		ordersCfg.PlatformFeePercent = defaultPlatformFeePercent
	}

	return &OrderService{
		orderRepo:      orderRepo,
		methodRepo:     methodRepo,
		subRepo:        subRepo,
		txRepo:         txRepo,
		activityRepo:   activityRepo,
		memberRepo:     memberRepo,
		collectiveRepo: collectiveRepo,
		gw:             gw,
		ordersCfg:      ordersCfg,
	}
}

// ProcessOrderInput is the loaded object graph for one order.
type ProcessOrderInput struct {
	Order          *entity.Order
	FromCollective *entity.Collective
	ToCollective   *entity.Collective
	PaymentMethod  *entity.PaymentMethod
	Subscription   *entity.Subscription
	UserID         uint64
	UserEmail      string
}

type TransactionPair struct {
	Credit *entity.Transaction
	Debit  *entity.Transaction
}

// ProcessOrderByID loads the order's object graph and runs the workflow.
func (s *OrderService) ProcessOrderByID(ctx context.Context, orderID, userID uint64, userEmail string) (*TransactionPair, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}

	fromCollective, err := s.collectiveRepo.FindByID(ctx, order.FromCollectiveID)
	if err != nil {
		return nil, err
	}
	toCollective, err := s.collectiveRepo.FindByID(ctx, order.ToCollectiveID)
	if err != nil {
		return nil, err
	}
	if fromCollective == nil || toCollective == nil {
		return nil, ErrCollectiveNotFound
	}

	method, err := s.methodRepo.FindByID(ctx, order.PaymentMethodID)
	if err != nil {
		return nil, err
	}
	if method == nil {
		return nil, ErrPaymentMethodMissing
	}

	var subscription *entity.Subscription
	if order.SubscriptionID != nil {
		subscription, err = s.subRepo.FindByID(ctx, *order.SubscriptionID)
		if err != nil {
			return nil, err
		}
	}

	return s.ProcessOrder(ctx, &ProcessOrderInput{
		Order:          order,
		FromCollective: fromCollective,
		ToCollective:   toCollective,
		PaymentMethod:  method,
		Subscription:   subscription,
		UserID:         userID,
		UserEmail:      userEmail,
	})
}

// ProcessOrder drives the full charge workflow for one order: host account
// resolution, customer provisioning, host-scoped tokenization, the charge
// itself, the optional recurring subscription, and the closing bookkeeping
// (backer role, processed stamp, payment method confirmation).
//
// Steps run strictly in order and a failure aborts everything after it with
// no rollback of gateway side effects already taken. A failure after the
// charge step therefore leaves a charged order without its processed stamp;
// the wrapped GatewayError carries the failing call so the order can be
// reconciled manually.
func (s *OrderService) ProcessOrder(ctx context.Context, in *ProcessOrderInput) (*TransactionPair, error) {
	if in.Order.ProcessedAt != nil {
		return nil, ErrOrderAlreadyProcessed
	}

	hostAccount, err := s.collectiveRepo.HostStripeAccount(ctx, in.ToCollective.ID)
	if err != nil {
		return nil, err
	}
	if hostAccount == "" {
		return nil, ErrHostAccountMissing
	}

	customerID, err := s.ensurePlatformCustomer(ctx, in)
	if err != nil {
		return nil, err
	}

	token, err := s.gw.CreateToken(ctx, hostAccount, customerID)
	if err != nil {
		return nil, &GatewayError{Op: "createToken", Err: err}
	}

	pair, err := s.createChargeAndTransactions(ctx, in, hostAccount, token.ID)
	if err != nil {
		return nil, err
	}

	if in.Subscription != nil {
		if err := s.createSubscription(ctx, in, hostAccount, customerID); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	if err := s.memberRepo.EnsureBackerRole(ctx, in.Order.ToCollectiveID, in.UserID, now); err != nil {
		return nil, err
	}
	if err := s.orderRepo.MarkProcessed(ctx, in.Order.ID, now); err != nil {
		return nil, err
	}
	if err := s.methodRepo.MarkConfirmed(ctx, in.PaymentMethod.ID, now); err != nil {
		return nil, err
	}

	return pair, nil
}

// ensurePlatformCustomer reuses the payment method's platform-level customer
// when present and provisions one otherwise. The persisted id is written
// first-write-wins: when a concurrent processor already stored one, that id
// is kept and the one created here becomes an unused duplicate on the
// gateway side.
func (s *OrderService) ensurePlatformCustomer(ctx context.Context, in *ProcessOrderInput) (string, error) {
	method := in.PaymentMethod
	if method.CustomerID != nil && *method.CustomerID != "" {
		return *method.CustomerID, nil
	}

	customer, err := s.gw.CreateCustomer(ctx, "", method.Token, in.UserEmail, in.UserEmail)
	if err != nil {
		return "", &GatewayError{Op: "createCustomer", Err: err}
	}

	won, err := s.methodRepo.SetCustomerID(ctx, method.ID, customer.ID, time.Now().UTC())
	if err != nil {
		return "", err
	}
	if !won {
		stored, err := s.methodRepo.FindByID(ctx, method.ID)
		if err != nil {
			return "", err
		}
		if stored != nil && stored.CustomerID != nil && *stored.CustomerID != "" {
			method.CustomerID = stored.CustomerID
			return *stored.CustomerID, nil
		}
	}

	method.CustomerID = &customer.ID
	return customer.ID, nil
}

// createChargeAndTransactions executes the charge on the host account and
// records the resulting CREDIT/DEBIT pair. The balance transaction reports
// fees and amount in the host's settlement currency, which may differ from
// the order currency; the fx rate between the two is what later reconstructs
// the collective-currency net amount.
func (s *OrderService) createChargeAndTransactions(ctx context.Context, in *ProcessOrderInput, hostAccount, sourceToken string) (*TransactionPair, error) {
	order := in.Order

	applicationFee := order.TotalAmount * s.ordersCfg.PlatformFeePercent / 100

	charge, err := s.gw.CreateCharge(ctx, hostAccount, &gateway.ChargeInput{
		Amount:         order.TotalAmount,
		Currency:       order.Currency,
		Source:         sourceToken,
		Description:    "Donation to " + in.ToCollective.Name,
		ApplicationFee: applicationFee,
		Metadata: map[string]string{
			"order_id":           strconv.FormatUint(order.ID, 10),
			"from_collective_id": strconv.FormatUint(order.FromCollectiveID, 10),
			"to_collective_id":   strconv.FormatUint(order.ToCollectiveID, 10),
		},
	})
	if err != nil {
		return nil, &GatewayError{Op: "createCharge", Err: err}
	}

	balanceTxn, err := s.gw.RetrieveBalanceTransaction(ctx, hostAccount, charge.BalanceTransactionID)
	if err != nil {
		return nil, &GatewayError{Op: "retrieveBalanceTransaction", Err: err}
	}

	processorFee := feeDetailAmount(balanceTxn, "stripe_fee")
	platformFee := feeDetailAmount(balanceTxn, "application_fee")
	hostFee := balanceTxn.Amount * in.ToCollective.HostFeePercent / 100

	fxRate := 1.0
	if balanceTxn.Amount != 0 {
		fxRate = float64(order.TotalAmount) / float64(balanceTxn.Amount)
	}

	now := time.Now().UTC()
	group := uuid.NewString()
	data := map[string]string{
		"charge":             charge.Raw,
		"balanceTransaction": balanceTxn.Raw,
	}

	credit := &entity.Transaction{
		Type:                              entity.TransactionTypeCredit,
		TransactionGroup:                  group,
		OrderID:                           &order.ID,
		FromCollectiveID:                  order.FromCollectiveID,
		CollectiveID:                      order.ToCollectiveID,
		HostCollectiveID:                  in.ToCollective.HostCollectiveID,
		Amount:                            order.TotalAmount,
		Currency:                          order.Currency,
		HostCurrency:                      balanceTxn.Currency,
		AmountInHostCurrency:              balanceTxn.Amount,
		HostFeeInHostCurrency:             ledger.Negate(hostFee),
		PlatformFeeInHostCurrency:         ledger.Negate(platformFee),
		PaymentProcessorFeeInHostCurrency: ledger.Negate(processorFee),
		HostCurrencyFxRate:                &fxRate,
		Description:                       order.Description,
		Data:                              data,
		CreatedAt:                         now,
		UpdatedAt:                         now,
	}
	credit.NetAmountInCollectiveCurrency = int64(math.Round(ledger.NetValue(credit)))

	debit := &entity.Transaction{
		Type:                              entity.TransactionTypeDebit,
		TransactionGroup:                  group,
		OrderID:                           &order.ID,
		FromCollectiveID:                  order.ToCollectiveID,
		CollectiveID:                      order.FromCollectiveID,
		HostCollectiveID:                  in.ToCollective.HostCollectiveID,
		Amount:                            -order.TotalAmount,
		Currency:                          order.Currency,
		HostCurrency:                      balanceTxn.Currency,
		AmountInHostCurrency:              -balanceTxn.Amount,
		HostFeeInHostCurrency:             ledger.Negate(hostFee),
		PlatformFeeInHostCurrency:         ledger.Negate(platformFee),
		PaymentProcessorFeeInHostCurrency: ledger.Negate(processorFee),
		HostCurrencyFxRate:                &fxRate,
		Description:                       order.Description,
		Data:                              data,
		CreatedAt:                         now,
		UpdatedAt:                         now,
	}
	debit.NetAmountInCollectiveCurrency = int64(math.Round(ledger.NetValue(debit)))

	if err := s.txRepo.CreatePair(ctx, credit, debit); err != nil {
		return nil, err
	}

	return &TransactionPair{Credit: credit, Debit: debit}, nil
}

// createSubscription sets up the recurring charge on the host account and
// activates the local subscription once the gateway confirms it.
func (s *OrderService) createSubscription(ctx context.Context, in *ProcessOrderInput, hostAccount, platformCustomerID string) error {
	order := in.Order
	subscription := in.Subscription

	plan, err := s.gw.GetOrCreatePlan(ctx, hostAccount, &gateway.PlanInput{
		Interval: subscription.Interval,
		Amount:   order.TotalAmount,
		Currency: order.Currency,
	})
	if err != nil {
		return &GatewayError{Op: "getOrCreatePlan", Err: err}
	}

	hostCustomerID, err := s.ensureHostCustomer(ctx, in, hostAccount, platformCustomerID)
	if err != nil {
		return err
	}

	gwSubscription, err := s.gw.CreateSubscription(ctx, hostAccount, hostCustomerID, &gateway.SubscriptionInput{
		PlanID:                plan.ID,
		ApplicationFeePercent: float64(s.ordersCfg.PlatformFeePercent),
		TrialEnd:              subscriptionTrialEnd(subscription.Interval, order.CreatedAt),
		Metadata: map[string]string{
			"order_id":          strconv.FormatUint(order.ID, 10),
			"payment_method_id": strconv.FormatUint(in.PaymentMethod.ID, 10),
		},
	})
	if err != nil {
		return &GatewayError{Op: "createSubscription", Err: err}
	}

	now := time.Now().UTC()
	if err := s.subRepo.Activate(ctx, subscription.ID, gwSubscription.ID, now); err != nil {
		return err
	}

	activityData := map[string]string{
		"collective_slug":        in.ToCollective.Slug,
		"subscription_id":        strconv.FormatUint(subscription.ID, 10),
		"stripe_subscription_id": gwSubscription.ID,
		"interval":               subscription.Interval,
		"amount":                 strconv.FormatInt(order.TotalAmount, 10),
		"currency":               order.Currency,
	}
	if order.TierID != nil {
		activityData["tier_id"] = strconv.FormatUint(*order.TierID, 10)
	}

	return s.activityRepo.Create(ctx, &entity.Activity{
		Type:         entity.ActivitySubscriptionConfirmed,
		CollectiveID: &order.ToCollectiveID,
		UserID:       &in.UserID,
		Data:         activityData,
		CreatedAt:    now,
	})
}

// ensureHostCustomer resolves the payer's customer representation inside the
// host's gateway account, reusing the per-host cache on the payment method.
// The host account is a distinct principal from the platform account, so the
// platform customer cannot be charged there directly; a fresh host-scoped
// token bridges the two.
func (s *OrderService) ensureHostCustomer(ctx context.Context, in *ProcessOrderInput, hostAccount, platformCustomerID string) (string, error) {
	method := in.PaymentMethod
	if cached := method.CustomerIDForHost(hostAccount); cached != "" {
		return cached, nil
	}

	token, err := s.gw.CreateToken(ctx, hostAccount, platformCustomerID)
	if err != nil {
		return "", &GatewayError{Op: "createToken", Err: err}
	}

	customer, err := s.gw.CreateCustomer(ctx, hostAccount, token.ID, in.UserEmail, in.UserEmail)
	if err != nil {
		return "", &GatewayError{Op: "createCustomer", Err: err}
	}

	won, err := s.methodRepo.SetHostCustomerID(ctx, method.ID, hostAccount, customer.ID, time.Now().UTC())
	if err != nil {
		return "", err
	}
	if !won {
		stored, err := s.methodRepo.FindByID(ctx, method.ID)
		if err != nil {
			return "", err
		}
		if stored != nil {
			if cached := stored.CustomerIDForHost(hostAccount); cached != "" {
				method.Data = stored.Data
				return cached, nil
			}
		}
	}

	if method.Data == nil {
		method.Data = map[string]string{}
	}
	method.Data[hostAccount] = customer.ID
	return customer.ID, nil
}

// subscriptionTrialEnd anchors the first full billing cycle to the first of
// the following month (or year): day-of-month forced to 1, then one or
// twelve calendar months ahead, in the order's own timezone basis. Unknown
// intervals get no trial end.
func subscriptionTrialEnd(interval string, orderCreatedAt time.Time) int64 {
	firstOfMonth := time.Date(orderCreatedAt.Year(), orderCreatedAt.Month(), 1, 0, 0, 0, 0, orderCreatedAt.Location())

	switch interval {
	case entity.SubscriptionIntervalMonth:
		return firstOfMonth.AddDate(0, 1, 0).Unix()
	case entity.SubscriptionIntervalYear:
		return firstOfMonth.AddDate(0, 12, 0).Unix()
	default:
		return 0
	}
}

func feeDetailAmount(txn *gateway.BalanceTransaction, feeType string) int64 {
	for _, detail := range txn.FeeDetails {
		if detail.Type == feeType {
			return detail.Amount
		}
	}
	return 0
}
