// Package storagetest provides a configurable storage.Store for service tests.
package storagetest

import (
	"context"
	"sync"

	"github.com/heartmarshall/social-backend/internal/connection"
	"github.com/heartmarshall/social-backend/internal/storage"
	"github.com/heartmarshall/social-backend/internal/view"
)

var _ storage.Store = &StoreMock{}

// StoreMock is a mock implementation of storage.Store.
// Each method delegates to the matching Func field and records its call.
type StoreMock struct {
	FindUniqueFunc func(ctx context.Context, q storage.Query) (view.Record, error)
	FindManyFunc   func(ctx context.Context, q storage.Query) ([]view.Record, error)
	CountFunc      func(ctx context.Context, typeName string, where storage.Cond) (int64, error)
	ScanFunc       func(ctx context.Context, q storage.Query) ([]connection.Node, error)
	LocateFunc     func(ctx context.Context, q storage.Query, id string) (connection.Position, error)
	CreateFunc     func(ctx context.Context, typeName string, values storage.Values) (string, error)
	UpdateFunc     func(ctx context.Context, typeName string, id string, where storage.Cond, values storage.Values) error
	DeleteFunc     func(ctx context.Context, typeName string, id string, where storage.Cond) error

	calls struct {
		FindUnique []FindUniqueCall
		FindMany   []FindManyCall
		Count      []CountCall
		Scan       []ScanCall
		Locate     []LocateCall
		Create     []CreateCall
		Update     []UpdateCall
		Delete     []DeleteCall
	}
	mu sync.RWMutex
}

// FindUniqueCall records one call to FindUnique.
type FindUniqueCall struct {
	Ctx context.Context
	Q   storage.Query
}

// FindManyCall records one call to FindMany.
type FindManyCall struct {
	Ctx context.Context
	Q   storage.Query
}

// CountCall records one call to Count.
type CountCall struct {
	Ctx      context.Context
	TypeName string
	Where    storage.Cond
}

// ScanCall records one call to Scan.
type ScanCall struct {
	Ctx context.Context
	Q   storage.Query
}

// LocateCall records one call to Locate.
type LocateCall struct {
	Ctx context.Context
	Q   storage.Query
	ID  string
}

// CreateCall records one call to Create.
type CreateCall struct {
	Ctx      context.Context
	TypeName string
	Values   storage.Values
}

// UpdateCall records one call to Update.
type UpdateCall struct {
	Ctx      context.Context
	TypeName string
	ID       string
	Where    storage.Cond
	Values   storage.Values
}

// DeleteCall records one call to Delete.
type DeleteCall struct {
	Ctx      context.Context
	TypeName string
	ID       string
	Where    storage.Cond
}

// FindUnique calls FindUniqueFunc.
func (mock *StoreMock) FindUnique(ctx context.Context, q storage.Query) (view.Record, error) {
	if mock.FindUniqueFunc == nil {
		panic("StoreMock.FindUniqueFunc: method is nil but Store.FindUnique was just called")
	}
	mock.mu.Lock()
	mock.calls.FindUnique = append(mock.calls.FindUnique, FindUniqueCall{Ctx: ctx, Q: q})
	mock.mu.Unlock()
	return mock.FindUniqueFunc(ctx, q)
}

// FindUniqueCalls returns the recorded calls to FindUnique.
func (mock *StoreMock) FindUniqueCalls() []FindUniqueCall {
	mock.mu.RLock()
	defer mock.mu.RUnlock()
	return mock.calls.FindUnique
}

// FindMany calls FindManyFunc.
func (mock *StoreMock) FindMany(ctx context.Context, q storage.Query) ([]view.Record, error) {
	if mock.FindManyFunc == nil {
		panic("StoreMock.FindManyFunc: method is nil but Store.FindMany was just called")
	}
	mock.mu.Lock()
	mock.calls.FindMany = append(mock.calls.FindMany, FindManyCall{Ctx: ctx, Q: q})
	mock.mu.Unlock()
	return mock.FindManyFunc(ctx, q)
}

// FindManyCalls returns the recorded calls to FindMany.
func (mock *StoreMock) FindManyCalls() []FindManyCall {
	mock.mu.RLock()
	defer mock.mu.RUnlock()
	return mock.calls.FindMany
}

// Count calls CountFunc.
func (mock *StoreMock) Count(ctx context.Context, typeName string, where storage.Cond) (int64, error) {
	if mock.CountFunc == nil {
		panic("StoreMock.CountFunc: method is nil but Store.Count was just called")
	}
	mock.mu.Lock()
	mock.calls.Count = append(mock.calls.Count, CountCall{Ctx: ctx, TypeName: typeName, Where: where})
	mock.mu.Unlock()
	return mock.CountFunc(ctx, typeName, where)
}

// CountCalls returns the recorded calls to Count.
func (mock *StoreMock) CountCalls() []CountCall {
	mock.mu.RLock()
	defer mock.mu.RUnlock()
	return mock.calls.Count
}

// Scan calls ScanFunc.
func (mock *StoreMock) Scan(ctx context.Context, q storage.Query) ([]connection.Node, error) {
	if mock.ScanFunc == nil {
		panic("StoreMock.ScanFunc: method is nil but Store.Scan was just called")
	}
	mock.mu.Lock()
	mock.calls.Scan = append(mock.calls.Scan, ScanCall{Ctx: ctx, Q: q})
	mock.mu.Unlock()
	return mock.ScanFunc(ctx, q)
}

// ScanCalls returns the recorded calls to Scan.
func (mock *StoreMock) ScanCalls() []ScanCall {
	mock.mu.RLock()
	defer mock.mu.RUnlock()
	return mock.calls.Scan
}

// Locate calls LocateFunc.
func (mock *StoreMock) Locate(ctx context.Context, q storage.Query, id string) (connection.Position, error) {
	if mock.LocateFunc == nil {
		panic("StoreMock.LocateFunc: method is nil but Store.Locate was just called")
	}
	mock.mu.Lock()
	mock.calls.Locate = append(mock.calls.Locate, LocateCall{Ctx: ctx, Q: q, ID: id})
	mock.mu.Unlock()
	return mock.LocateFunc(ctx, q, id)
}

// LocateCalls returns the recorded calls to Locate.
func (mock *StoreMock) LocateCalls() []LocateCall {
	mock.mu.RLock()
	defer mock.mu.RUnlock()
	return mock.calls.Locate
}

// Create calls CreateFunc.
func (mock *StoreMock) Create(ctx context.Context, typeName string, values storage.Values) (string, error) {
	if mock.CreateFunc == nil {
		panic("StoreMock.CreateFunc: method is nil but Store.Create was just called")
	}
	mock.mu.Lock()
	mock.calls.Create = append(mock.calls.Create, CreateCall{Ctx: ctx, TypeName: typeName, Values: values})
	mock.mu.Unlock()
	return mock.CreateFunc(ctx, typeName, values)
}

// CreateCalls returns the recorded calls to Create.
func (mock *StoreMock) CreateCalls() []CreateCall {
	mock.mu.RLock()
	defer mock.mu.RUnlock()
	return mock.calls.Create
}

// Update calls UpdateFunc.
func (mock *StoreMock) Update(ctx context.Context, typeName string, id string, where storage.Cond, values storage.Values) error {
	if mock.UpdateFunc == nil {
		panic("StoreMock.UpdateFunc: method is nil but Store.Update was just called")
	}
	mock.mu.Lock()
	mock.calls.Update = append(mock.calls.Update, UpdateCall{Ctx: ctx, TypeName: typeName, ID: id, Where: where, Values: values})
	mock.mu.Unlock()
	return mock.UpdateFunc(ctx, typeName, id, where, values)
}

// UpdateCalls returns the recorded calls to Update.
func (mock *StoreMock) UpdateCalls() []UpdateCall {
	mock.mu.RLock()
	defer mock.mu.RUnlock()
	return mock.calls.Update
}

// Delete calls DeleteFunc.
func (mock *StoreMock) Delete(ctx context.Context, typeName string, id string, where storage.Cond) error {
	if mock.DeleteFunc == nil {
		panic("StoreMock.DeleteFunc: method is nil but Store.Delete was just called")
	}
	mock.mu.Lock()
	mock.calls.Delete = append(mock.calls.Delete, DeleteCall{Ctx: ctx, TypeName: typeName, ID: id, Where: where})
	mock.mu.Unlock()
	return mock.DeleteFunc(ctx, typeName, id, where)
}

// DeleteCalls returns the recorded calls to Delete.
func (mock *StoreMock) DeleteCalls() []DeleteCall {
	mock.mu.RLock()
	defer mock.mu.RUnlock()
	return mock.calls.Delete
}
