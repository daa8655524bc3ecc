package database

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// Table statuses.
const (
	TableAvailable = "available"
	TableOccupied  = "occupied"
	TableReserved  = "reserved"
)

// Order statuses.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusPreparing = "preparing"
	StatusReady     = "ready"
	StatusDelivered = "delivered"
	StatusCancelled = "cancelled"
)

// Order sources.
const (
	SourceWaiter   = "waiter"
	SourceAdmin    = "admin"
	SourceQrClient = "qr-client"
)

type Version struct {
	ID      int    `db:"ID"`
	Name    string `db:"Name"`
	Version int    `db:"Version"`
}

type Table struct {
	ID        string         `db:"ID"`
	Number    int            `db:"Number"`
	Name      sql.NullString `db:"Name"`
	Capacity  int            `db:"Capacity"`
	Status    string         `db:"Status"`
	Location  sql.NullString `db:"Location"`
	IsActive  bool           `db:"IsActive"`
	CreatedAt time.Time      `db:"CreatedAt"`
	UpdatedAt time.Time      `db:"UpdatedAt"`
}

type Category struct {
	ID       string         `db:"ID"`
	Name     string         `db:"Name"`
	Desc     sql.NullString `db:"Description"`
	IsActive bool           `db:"IsActive"`
}

type Product struct {
	ID          string          `db:"ID"`
	CategoryID  sql.NullString  `db:"CategoryID"`
	Name        string          `db:"Name"`
	Desc        sql.NullString  `db:"Description"`
	Price       decimal.Decimal `db:"Price"`
	IsAvailable bool            `db:"IsAvailable"`
	// PreparationTime in minutes, 0 means not set.
	PreparationTime int       `db:"PreparationTime"`
	CreatedAt       time.Time `db:"CreatedAt"`
	UpdatedAt       time.Time `db:"UpdatedAt"`
}

type User struct {
	ID       string `db:"ID"`
	Name     string `db:"Name"`
	Role     string `db:"Role"`
	IsActive bool   `db:"IsActive"`
}

type QrCode struct {
	ID             string    `db:"ID"`
	TableID        string    `db:"TableID"`
	Code           string    `db:"Code"`
	ExpirationDate time.Time `db:"ExpirationDate"`
	IsActive       bool      `db:"IsActive"`
	CreatedAt      time.Time `db:"CreatedAt"`
}

type Order struct {
	ID          string          `db:"ID"`
	OrderNumber string          `db:"OrderNumber"`
	TableID     string          `db:"TableID"`
	Status      string          `db:"Status"`
	Source      string          `db:"Source"`
	CreatedBy   sql.NullString  `db:"CreatedBy"`
	Subtotal    decimal.Decimal `db:"Subtotal"`
	Tax         decimal.Decimal `db:"Tax"`
	Total       decimal.Decimal `db:"Total"`
	Notes       sql.NullString  `db:"Notes"`
	CustomerName sql.NullString `db:"CustomerName"`
	// EstimatedTime in minutes.
	EstimatedTime int          `db:"EstimatedTime"`
	CompletedAt   sql.NullTime `db:"CompletedAt"`
	CreatedAt     time.Time    `db:"CreatedAt"`
	UpdatedAt     time.Time    `db:"UpdatedAt"`
}

type OrderItem struct {
	ID        string          `db:"ID"`
	OrderID   string          `db:"OrderID"`
	ProductID string          `db:"ProductID"`
	Quantity  int             `db:"Quantity"`
	UnitPrice decimal.Decimal `db:"UnitPrice"`
	Subtotal  decimal.Decimal `db:"Subtotal"`
	Notes     sql.NullString  `db:"Notes"`
}

const DB_SCHEMA = `CREATE TABLE Tables (
	ID text PRIMARY KEY,
	Number integer NOT NULL UNIQUE,
	Name text,
	Capacity integer NOT NULL DEFAULT 4,
	Status text NOT NULL DEFAULT 'available',
	Location text,
	IsActive integer NOT NULL DEFAULT 1,
	CreatedAt timestamp NOT NULL,
	UpdatedAt timestamp NOT NULL
);

CREATE TABLE Categories (
	ID text PRIMARY KEY,
	Name text NOT NULL,
	Description text,
	IsActive integer NOT NULL DEFAULT 1
);

CREATE TABLE Products (
	ID text PRIMARY KEY,
	CategoryID text REFERENCES Categories(ID),
	Name text NOT NULL,
	Description text,
	Price text NOT NULL,
	IsAvailable integer NOT NULL DEFAULT 1,
	PreparationTime integer NOT NULL DEFAULT 0,
	CreatedAt timestamp NOT NULL,
	UpdatedAt timestamp NOT NULL
);

CREATE TABLE Users (
	ID text PRIMARY KEY,
	Name text NOT NULL,
	Role text NOT NULL,
	IsActive integer NOT NULL DEFAULT 1
);

CREATE TABLE QrCodes (
	ID text PRIMARY KEY,
	TableID text NOT NULL UNIQUE REFERENCES Tables(ID),
	Code text NOT NULL UNIQUE,
	ExpirationDate timestamp NOT NULL,
	IsActive integer NOT NULL DEFAULT 1,
	CreatedAt timestamp NOT NULL
);

CREATE TABLE Orders (
	ID text PRIMARY KEY,
	OrderNumber text NOT NULL UNIQUE,
	TableID text NOT NULL REFERENCES Tables(ID),
	Status text NOT NULL DEFAULT 'pending',
	Source text NOT NULL,
	CreatedBy text,
	Subtotal text NOT NULL,
	Tax text NOT NULL,
	Total text NOT NULL,
	Notes text,
	CustomerName text,
	EstimatedTime integer NOT NULL DEFAULT 0,
	CompletedAt timestamp,
	CreatedAt timestamp NOT NULL,
	UpdatedAt timestamp NOT NULL
);

CREATE TABLE OrderItems (
	ID text PRIMARY KEY,
	OrderID text NOT NULL REFERENCES Orders(ID) ON DELETE CASCADE,
	ProductID text NOT NULL REFERENCES Products(ID),
	Quantity integer NOT NULL,
	UnitPrice text NOT NULL,
	Subtotal text NOT NULL,
	Notes text
);

CREATE INDEX idx_orders_table ON Orders(TableID);
CREATE INDEX idx_orders_status ON Orders(Status);
CREATE INDEX idx_orders_created ON Orders(CreatedAt);
CREATE INDEX idx_orderitems_order ON OrderItems(OrderID);
CREATE INDEX idx_orderitems_product ON OrderItems(ProductID);

CREATE TABLE Version (
	ID integer PRIMARY KEY AUTOINCREMENT,
	Name text,
	Version integer
);
`
