package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type Order struct {
	ID               uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID           uuid.UUID       `gorm:"type:uuid;not null;index" json:"user_id"`
	Status           OrderStatus     `gorm:"type:text;not null;default:'pending';index" json:"status"`
	TotalAmount      decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"total_amount"`
	UpdatedBy        string          `gorm:"type:text;not null" json:"updated_by"`
	LastStatusChange time.Time       `gorm:"not null;default:now()" json:"last_status_change"`

	CreatedAt time.Time `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`

	Items []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
}

func (Order) TableName() string { return "orders" }

// OrderItem is a snapshot of a purchased line. Rows derived from a pack carry
// IsPack and the pack code; their price is zero, the pack price lives in the
// order total.
type OrderItem struct {
	ID       uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID  uuid.UUID       `gorm:"type:uuid;not null;index" json:"order_id"`
	ItemCode string          `gorm:"type:text;not null" json:"item_code"`
	Quantity int             `gorm:"type:int;not null" json:"quantity"`
	Price    decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	Size     *string         `gorm:"type:text" json:"size,omitempty"`
	Color    *string         `gorm:"type:text" json:"color,omitempty"`
	ColorHex *string         `gorm:"type:varchar(9)" json:"color_hex,omitempty"`
	Name     string          `gorm:"type:text;not null" json:"name"`
	Image    *string         `gorm:"type:text" json:"image,omitempty"`
	IsPack   bool            `gorm:"not null;default:false" json:"is_pack"`
	PackCode *string         `gorm:"type:text" json:"pack_code,omitempty"`
	Position int             `gorm:"type:int;not null;default:0" json:"position"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (OrderItem) TableName() string { return "order_items" }

type PaymentGateway string

const (
	GatewayPayHere     PaymentGateway = "payhere"
	GatewayCyberSource PaymentGateway = "cybersource"
)

type PaymentPurpose string

const (
	PurposeOrder       PaymentPurpose = "order"
	PurposeDelegateFee PaymentPurpose = "delegate_fee"
)

// PaymentRecord is appended once per gateway notification and never updated.
type PaymentRecord struct {
	ID               uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Gateway          PaymentGateway    `gorm:"type:text;not null;index" json:"gateway"`
	Purpose          PaymentPurpose    `gorm:"type:text;not null" json:"purpose"`
	OrderID          *uuid.UUID        `gorm:"type:uuid;index" json:"order_id,omitempty"`
	UserID           *uuid.UUID        `gorm:"type:uuid;index" json:"user_id,omitempty"`
	GatewayPaymentID string            `gorm:"type:text;not null;index" json:"gateway_payment_id"`
	Amount           decimal.Decimal   `gorm:"type:numeric(12,2);not null" json:"amount"`
	Currency         string            `gorm:"type:varchar(8);not null" json:"currency"`
	StatusCode       string            `gorm:"type:text;not null" json:"status_code"`
	Method           *string           `gorm:"type:text" json:"method,omitempty"`
	StatusMessage    *string           `gorm:"type:text" json:"status_message,omitempty"`
	Custom1          *string           `gorm:"type:text" json:"custom_1,omitempty"`
	Custom2          *string           `gorm:"type:text" json:"custom_2,omitempty"`
	ReasonCode       *string           `gorm:"type:text" json:"reason_code,omitempty"`
	RawPayload       datatypes.JSONMap `gorm:"type:jsonb" json:"raw_payload,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now();index" json:"created_at"`
}

func (PaymentRecord) TableName() string { return "payment_records" }

type WalletAccount struct {
	UserID uuid.UUID       `gorm:"type:uuid;primaryKey" json:"user_id"`
	Credit decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"credit"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (WalletAccount) TableName() string { return "wallet_accounts" }

type CreditTransactionType string

const (
	CreditPurchase CreditTransactionType = "purchase"
	CreditTopUp    CreditTransactionType = "top_up"
	CreditTransfer CreditTransactionType = "transfer"
)

const CreditStatusCompleted = "completed"

// CreditTransaction is an append-only ledger row. A nil ToID means the credit
// was paid to the system.
type CreditTransaction struct {
	ID      uuid.UUID             `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Amount  decimal.Decimal       `gorm:"type:numeric(12,2);not null" json:"amount"`
	Type    CreditTransactionType `gorm:"type:text;not null" json:"type"`
	Status  string                `gorm:"type:text;not null;default:'completed'" json:"status"`
	FromID  *uuid.UUID            `gorm:"type:uuid;index" json:"from_id,omitempty"`
	ToID    *uuid.UUID            `gorm:"type:uuid;index" json:"to_id,omitempty"`
	OrderID *uuid.UUID            `gorm:"type:uuid;index" json:"order_id,omitempty"`
	Reason  *string               `gorm:"type:text" json:"reason,omitempty"`
	Actor   string                `gorm:"type:text;not null" json:"actor"`

	CreatedAt time.Time `gorm:"not null;default:now();index" json:"created_at"`
}

func (CreditTransaction) TableName() string { return "credit_transactions" }

type User struct {
	ID                uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Email             string     `gorm:"type:citext;not null;uniqueIndex" json:"email"`
	FullName          string     `gorm:"type:text;not null;default:''" json:"full_name"`
	DelegateFeePaid   bool       `gorm:"not null;default:false" json:"delegate_fee_paid"`
	DelegateFeePaidAt *time.Time `json:"delegate_fee_paid_at,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (User) TableName() string { return "users" }

type CatalogKind string

const (
	CatalogItemKind CatalogKind = "item"
	CatalogPackKind CatalogKind = "pack"
)

type CatalogItem struct {
	ID       uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ItemCode string          `gorm:"type:text;not null;uniqueIndex" json:"item_code"`
	Kind     CatalogKind     `gorm:"type:text;not null;default:'item'" json:"kind"`
	Name     string          `gorm:"type:text;not null" json:"name"`
	Image    *string         `gorm:"type:text" json:"image,omitempty"`
	Price    decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"price"`
	Active   bool            `gorm:"not null;default:true" json:"active"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (CatalogItem) TableName() string { return "catalog_items" }
