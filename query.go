package gpa

import (
	"fmt"
	"strings"
)

// =====================================
// Query Building
// =====================================

// QueryOption interface for building database queries
type QueryOption interface {
	Apply(query *Query)
}

// Query represents a database query
type Query struct {
	Conditions []Condition
	Orders     []Order
	Limit      *int
	Offset     *int
}

// Condition represents a query condition
type Condition interface {
	Field() string
	Operator() Operator
	Value() interface{}
	String() string
}

// BasicCondition implements Condition
type BasicCondition struct {
	FieldName string
	Op        Operator
	Val       interface{}
}

func (c BasicCondition) Field() string      { return c.FieldName }
func (c BasicCondition) Operator() Operator { return c.Op }
func (c BasicCondition) Value() interface{} { return c.Val }
func (c BasicCondition) String() string {
	switch c.Op {
	case OpIsNull, OpIsNotNull:
		return c.FieldName + " " + string(c.Op)
	case OpIn, OpNotIn:
		return c.FieldName + " " + string(c.Op) + " (?)"
	}
	return c.FieldName + " " + string(c.Op) + " ?"
}

// =====================================
// Query Option Implementations
// =====================================

// ConditionOption implements QueryOption for basic conditions
type ConditionOption struct {
	Condition Condition
}

func (o ConditionOption) Apply(query *Query) {
	query.Conditions = append(query.Conditions, o.Condition)
}

// OrderOption implements QueryOption for ordering
type OrderOption struct {
	Order Order
}

func (o OrderOption) Apply(query *Query) {
	query.Orders = append(query.Orders, o.Order)
}

// LimitOption implements QueryOption for limiting results
type LimitOption struct {
	Limit int
}

func (o LimitOption) Apply(query *Query) {
	query.Limit = &o.Limit
}

// OffsetOption implements QueryOption for offsetting results
type OffsetOption struct {
	Offset int
}

func (o OffsetOption) Apply(query *Query) {
	query.Offset = &o.Offset
}

// =====================================
// Query Option Helpers
// =====================================

// Where creates a basic condition option
func Where(field string, operator Operator, value interface{}) QueryOption {
	return ConditionOption{
		Condition: BasicCondition{
			FieldName: field,
			Op:        operator,
			Val:       value,
		},
	}
}

// WhereNotIn creates a NOT IN condition option
func WhereNotIn(field string, values []interface{}) QueryOption {
	return Where(field, OpNotIn, values)
}

// OrderBy creates an order option
func OrderBy(field string, direction OrderDirection) QueryOption {
	return OrderOption{Order: Order{Field: field, Direction: direction}}
}

// Limit creates a limit option
func Limit(count int) QueryOption {
	return LimitOption{Limit: count}
}

// Offset creates an offset option
func Offset(count int) QueryOption {
	return OffsetOption{Offset: count}
}

// NewQuery folds the options into a Query
func NewQuery(opts ...QueryOption) *Query {
	query := &Query{}
	for _, opt := range opts {
		if opt != nil {
			opt.Apply(query)
		}
	}
	return query
}

// String renders the query in a readable form for logging
func (q *Query) String() string {
	var parts []string
	if len(q.Conditions) > 0 {
		conds := make([]string, 0, len(q.Conditions))
		for _, c := range q.Conditions {
			conds = append(conds, c.String())
		}
		parts = append(parts, "WHERE "+strings.Join(conds, " AND "))
	}
	if len(q.Orders) > 0 {
		orders := make([]string, 0, len(q.Orders))
		for _, o := range q.Orders {
			orders = append(orders, fmt.Sprintf("%s %s", o.Field, o.Direction))
		}
		parts = append(parts, "ORDER BY "+strings.Join(orders, ", "))
	}
	if q.Limit != nil {
		parts = append(parts, fmt.Sprintf("LIMIT %d", *q.Limit))
	}
	if q.Offset != nil {
		parts = append(parts, fmt.Sprintf("OFFSET %d", *q.Offset))
	}
	return strings.Join(parts, " ")
}
