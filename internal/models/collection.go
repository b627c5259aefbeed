package models

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCollection = errors.New("invalid collection")
	ErrInvalidOperation  = errors.New("invalid operation")
)

// Collection is one category of entity that is queued and synchronized independently.
type Collection string

const (
	CollectionProducts Collection = "products"
	CollectionSales    Collection = "sales"
	CollectionOrders   Collection = "orders"
	CollectionPayments Collection = "payments"
)

// ShopsTable holds one row per shop profile on the remote side.
const ShopsTable = "shops"

var collections = []Collection{
	CollectionProducts,
	CollectionSales,
	CollectionOrders,
	CollectionPayments,
}

func Collections() []Collection {
	out := make([]Collection, len(collections))
	copy(out, collections)
	return out
}

func (c Collection) Valid() bool {
	for _, known := range collections {
		if c == known {
			return true
		}
	}
	return false
}

// Table returns the remote table backing the collection.
func (c Collection) Table() string {
	return string(c)
}

func ParseCollection(s string) (Collection, error) {
	c := Collection(s)
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidCollection, s)
	}
	return c, nil
}

type Operation string

const (
	OperationInsert Operation = "insert"
	OperationUpdate Operation = "update"
	OperationDelete Operation = "delete"
)

func (o Operation) Valid() bool {
	switch o {
	case OperationInsert, OperationUpdate, OperationDelete:
		return true
	}
	return false
}

func ParseOperation(s string) (Operation, error) {
	o := Operation(s)
	if !o.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidOperation, s)
	}
	return o, nil
}
