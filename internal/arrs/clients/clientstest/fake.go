// Package clientstest provides an in-memory clients.Client for tests.
package clientstest

import (
	"context"
	"fmt"
	"sync"

	"github.com/javi11/huntarr/internal/arrs/clients"
	"github.com/javi11/huntarr/internal/arrs/model"
	errs "github.com/javi11/huntarr/internal/errors"
)

// Fake is a scriptable client. Zero values behave like an empty, reachable app.
type Fake struct {
	mu sync.Mutex

	App         model.AppType
	ConnErr     error
	Queue       []model.QueueRecord
	QueueErr    error
	Items       map[int64]*model.Item
	ItemErrs    map[int64]error
	Files       map[int64]*model.FileInfo
	WantedLists map[model.WantedKind][]model.WantedRecord
	ChildTitles map[int64]string

	Searches   [][]int64
	Removed    []int64
	QueueCalls int
}

var _ clients.Client = (*Fake)(nil)

func (f *Fake) AppType() model.AppType { return f.App }

func (f *Fake) CheckConnection(context.Context) error { return f.ConnErr }

func (f *Fake) GetQueue(context.Context) ([]model.QueueRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.QueueCalls++
	if f.QueueErr != nil {
		return nil, f.QueueErr
	}
	return append([]model.QueueRecord(nil), f.Queue...), nil
}

func (f *Fake) GetItem(_ context.Context, id int64) (*model.Item, error) {
	if err := f.ItemErrs[id]; err != nil {
		return nil, err
	}
	item, ok := f.Items[id]
	if !ok {
		return nil, fmt.Errorf("item %d not found", id)
	}
	cp := *item
	return &cp, nil
}

func (f *Fake) GetFile(_ context.Context, fileID int64) (*model.FileInfo, error) {
	file, ok := f.Files[fileID]
	if !ok {
		return nil, errs.ErrUnsupported
	}
	return file, nil
}

func (f *Fake) Wanted(_ context.Context, kind model.WantedKind, pageSize int) ([]model.WantedRecord, error) {
	list := f.WantedLists[kind]
	if pageSize > 0 && len(list) > pageSize {
		list = list[:pageSize]
	}
	return list, nil
}

func (f *Fake) Search(_ context.Context, ids []int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Searches = append(f.Searches, append([]int64(nil), ids...))
	return nil
}

func (f *Fake) RemoveFromQueue(_ context.Context, queueID int64, _, _ bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Removed = append(f.Removed, queueID)
	return nil
}

func (f *Fake) ChildTitle(_ context.Context, rec model.QueueRecord) (string, error) {
	return f.ChildTitles[rec.ChildID], nil
}

// Provider hands out fakes keyed by app and instance name.
type Provider struct {
	Clients map[string]*Fake
}

// NewProvider creates an empty provider.
func NewProvider() *Provider {
	return &Provider{Clients: make(map[string]*Fake)}
}

// Set registers the fake for an instance.
func (p *Provider) Set(app model.AppType, instance string, f *Fake) {
	f.App = app
	p.Clients[string(app)+"|"+instance] = f
}

func (p *Provider) Get(app model.AppType, inst model.Instance) (clients.Client, error) {
	f, ok := p.Clients[string(app)+"|"+inst.DisplayName()]
	if !ok {
		return nil, errs.NewConfigurationError(string(app), inst.DisplayName(), "no fake registered")
	}
	return f, nil
}

// Instances is a static InstanceLister.
type Instances map[model.AppType][]model.Instance

func (i Instances) ConfiguredInstances(_ context.Context, app model.AppType) ([]model.Instance, error) {
	return i[app], nil
}
