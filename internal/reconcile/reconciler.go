// Package reconcile matches history entries that are still being searched
// against the live download queues and records their download progress.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"

	"github.com/javi11/huntarr/internal/arrs/clients"
	"github.com/javi11/huntarr/internal/arrs/data"
	"github.com/javi11/huntarr/internal/arrs/model"
	"github.com/javi11/huntarr/internal/history"
	"github.com/javi11/huntarr/internal/slogutil"
	"github.com/sourcegraph/conc/pool"
)

// InstanceLister returns the usable instances of an app.
type InstanceLister interface {
	ConfiguredInstances(ctx context.Context, app model.AppType) ([]model.Instance, error)
}

// HistoryStore is the subset of the history store the reconciler needs.
type HistoryStore interface {
	Entries(ctx context.Context, app model.AppType, instance string) ([]history.Entry, error)
	UpdateStatusFor(ctx context.Context, app model.AppType, instance, itemID, operation, status string, extra history.Fields) (bool, error)
}

// Result summarizes one pass.
type Result struct {
	Checked int
	Updated int
}

// Reconciler runs queue reconciliation across app types.
type Reconciler struct {
	instances InstanceLister
	clients   clients.Provider
	history   HistoryStore
	queues    *data.QueueCache
	apps      []model.AppType
	workers   int
}

// New creates a reconciler. queues may be nil to always fetch fresh queues.
func New(instances InstanceLister, provider clients.Provider, store HistoryStore, queues *data.QueueCache) *Reconciler {
	return &Reconciler{
		instances: instances,
		clients:   provider,
		history:   store,
		queues:    queues,
		apps:      model.AllAppTypes(),
		workers:   2,
	}
}

// Run reconciles every app type. A failing app type is logged and does not
// affect the others.
func (r *Reconciler) Run(ctx context.Context) Result {
	slog.InfoContext(ctx, "Queue tracking cycle started")

	p := pool.NewWithResults[Result]().WithMaxGoroutines(r.workers)
	for _, app := range r.apps {
		p.Go(func() Result {
			return r.runApp(ctx, app)
		})
	}

	var total Result
	for _, res := range p.Wait() {
		total.Checked += res.Checked
		total.Updated += res.Updated
	}

	slog.InfoContext(ctx, "Queue tracking cycle finished", "checked", total.Checked, "updated", total.Updated)
	return total
}

func (r *Reconciler) runApp(ctx context.Context, app model.AppType) (res Result) {
	ctx = slogutil.With(ctx, "app_type", app)

	defer func() {
		if p := recover(); p != nil {
			slog.ErrorContext(ctx, "Panic while tracking queue", "panic", p, "stack", string(debug.Stack()))
		}
	}()

	res, err := r.ReconcileApp(ctx, app)
	if err != nil {
		slog.ErrorContext(ctx, "Error tracking queue", "error", err)
	}
	return res
}

// ReconcileApp processes the instances of one app in configured order.
func (r *Reconciler) ReconcileApp(ctx context.Context, app model.AppType) (Result, error) {
	var res Result

	instances, err := r.instances.ConfiguredInstances(ctx, app)
	if err != nil {
		return res, fmt.Errorf("load instances: %w", err)
	}

	for _, inst := range instances {
		if ctx.Err() != nil {
			return res, nil
		}

		instRes, err := r.reconcileInstance(slogutil.WithInstance(ctx, string(app), inst.DisplayName()), app, inst)
		res.Checked += instRes.Checked
		res.Updated += instRes.Updated
		if err != nil {
			slog.WarnContext(ctx, "Skipping instance queue tracking", "instance", inst.DisplayName(), "error", err)
		}
	}

	return res, nil
}

// refreshable reports whether an entry still follows the queue.
func refreshable(e history.Entry) bool {
	return e.HuntStatus == history.StatusSearching || strings.HasPrefix(e.HuntStatus, "Downloading (")
}

func (r *Reconciler) reconcileInstance(ctx context.Context, app model.AppType, inst model.Instance) (Result, error) {
	var res Result
	name := inst.DisplayName()

	entries, err := r.history.Entries(ctx, app, name)
	if err != nil {
		return res, err
	}

	var pending []history.Entry
	for _, e := range entries {
		if refreshable(e) {
			pending = append(pending, e)
		}
	}
	if len(pending) == 0 {
		slog.DebugContext(ctx, "No searching entries")
		return res, nil
	}

	client, err := r.clients.Get(app, inst)
	if err != nil {
		return res, err
	}

	queue, err := r.fetchQueue(ctx, app, name, client)
	if err != nil {
		return res, err
	}
	if len(queue) == 0 {
		slog.DebugContext(ctx, "Queue is empty, nothing to reconcile")
		return res, nil
	}

	slog.InfoContext(ctx, "Checking entries against queue", "entries", len(pending), "queue_items", len(queue))

	for _, entry := range pending {
		res.Checked++

		for _, rec := range queue {
			if !Matches(app, entry, rec) {
				continue
			}

			if app == model.Sonarr || app == model.Lidarr || app == model.Readarr {
				title, err := client.ChildTitle(ctx, rec)
				if err != nil {
					slog.DebugContext(ctx, "Could not resolve queue child title", "queue_id", rec.ID, "error", err)
				}
				rec.ChildTitle = title
			}

			status := StatusFor(app, rec)
			if status == entry.HuntStatus {
				break
			}

			ok, err := r.history.UpdateStatusFor(ctx, app, name, entry.ID, entry.OperationType, status, QueueFields(app, rec))
			if err != nil {
				slog.ErrorContext(ctx, "Failed to update history entry", "item_id", entry.ID, "error", err)
			} else if ok {
				res.Updated++
				slog.InfoContext(ctx, "Updated entry with queue status", "item_id", entry.ID, "hunt_status", status)
			}
			break
		}
	}

	return res, nil
}

func (r *Reconciler) fetchQueue(ctx context.Context, app model.AppType, instance string, client clients.Client) ([]model.QueueRecord, error) {
	if r.queues == nil {
		return client.GetQueue(ctx)
	}
	return r.queues.Get(ctx, app, instance, client.GetQueue)
}
