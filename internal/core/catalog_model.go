package core

import (
	"context"
	"time"
)

// Product is a catalog master record. ItemCode is the business key used by receiving and sales.
type Product struct {
	ID            int       `json:"id"`
	ItemCode      string    `json:"item_code"`
	ProductName   string    `json:"product_name"`
	CompanyName   string    `json:"company_name"`
	Specification *string   `json:"specification,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// ProductInput holds the editable product fields. A blank ItemCode on create is assigned
// from the product series; on update it keeps the current code.
type ProductInput struct {
	ItemCode      string
	ProductName   string
	CompanyName   string
	Specification string
}

// Vendor is a supplier master record.
type Vendor struct {
	ID          int       `json:"id"`
	VendorCode  string    `json:"vendor_code"`
	VendorName  string    `json:"vendor_name"`
	Phone       *string   `json:"phone,omitempty"`
	CompanyName string    `json:"company_name"`
	CreatedAt   time.Time `json:"created_at"`
}

// VendorInput holds the editable vendor fields. VendorCode follows the same rules as
// ProductInput.ItemCode.
type VendorInput struct {
	VendorCode  string
	VendorName  string
	Phone       string
	CompanyName string
}

// CatalogService maintains product and vendor master data.
// Deleting a record still referenced by receiving history fails with ErrReferenceInUse.
type CatalogService interface {
	CreateProduct(ctx context.Context, input ProductInput) (*Product, error)
	GetProduct(ctx context.Context, id int) (*Product, error)
	GetProductByCode(ctx context.Context, itemCode string) (*Product, error)
	ListProducts(ctx context.Context) ([]Product, error)
	UpdateProduct(ctx context.Context, id int, input ProductInput) (*Product, error)
	DeleteProduct(ctx context.Context, id int) error

	CreateVendor(ctx context.Context, input VendorInput) (*Vendor, error)
	GetVendor(ctx context.Context, id int) (*Vendor, error)
	GetVendorByCode(ctx context.Context, vendorCode string) (*Vendor, error)
	ListVendors(ctx context.Context) ([]Vendor, error)
	UpdateVendor(ctx context.Context, id int, input VendorInput) (*Vendor, error)
	DeleteVendor(ctx context.Context, id int) error
}
