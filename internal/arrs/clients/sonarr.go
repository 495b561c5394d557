package clients

import (
	"context"
	"fmt"

	"github.com/javi11/huntarr/internal/arrs/model"
	errs "github.com/javi11/huntarr/internal/errors"
	"golift.io/starr"
	"golift.io/starr/sonarr"
)

// sonarrClient serves Sonarr and the Sonarr-based Whisparr.
type sonarrClient struct {
	app model.AppType
	api *sonarr.Sonarr
}

func (c *sonarrClient) AppType() model.AppType { return c.app }

func (c *sonarrClient) CheckConnection(ctx context.Context) error {
	return withRetry(ctx, "system status", func() error {
		_, err := c.api.GetSystemStatusContext(ctx)
		return err
	})
}

func (c *sonarrClient) GetQueue(ctx context.Context) ([]model.QueueRecord, error) {
	queue, err := c.api.GetQueueContext(ctx, 0, queuePageSize)
	if err != nil {
		return nil, wrapVendor("get queue", err)
	}

	records := make([]model.QueueRecord, 0, len(queue.Records))
	for _, q := range queue.Records {
		if q == nil {
			continue
		}
		records = append(records, model.QueueRecord{
			ID:             q.ID,
			ForeignID:      q.SeriesID,
			ChildID:        q.EpisodeID,
			Title:          q.Title,
			Size:           q.Size,
			SizeLeft:       q.Sizeleft,
			Status:         q.Status,
			TrackedStatus:  q.TrackedDownloadStatus,
			TimeLeft:       q.Timeleft,
			DownloadClient: q.DownloadClient,
			Protocol:       string(q.Protocol),
			Indexer:        q.Indexer,
			Quality:        qualityName(q.Quality),
			Resolution:     qualityResolution(q.Quality),
			Messages:       statusMessages(q.StatusMessages),
		})
	}

	return records, nil
}

func (c *sonarrClient) GetItem(ctx context.Context, id int64) (*model.Item, error) {
	series, err := c.api.GetSeriesByIDContext(ctx, id)
	if err != nil {
		return nil, wrapVendor(fmt.Sprintf("get series %d", id), err)
	}

	item := &model.Item{
		ID:        series.ID,
		Title:     series.Title,
		Year:      series.Year,
		Monitored: series.Monitored,
		ImdbID:    series.ImdbID,
		TvdbID:    series.TvdbID,
	}
	if series.Statistics != nil {
		item.FileCount = series.Statistics.EpisodeFileCount
		item.HasFile = series.Statistics.EpisodeFileCount > 0
		item.SizeBytes = series.Statistics.SizeOnDisk
	}

	return item, nil
}

func (c *sonarrClient) GetFile(context.Context, int64) (*model.FileInfo, error) {
	return nil, errs.ErrUnsupported
}

func (c *sonarrClient) Wanted(ctx context.Context, kind model.WantedKind, pageSize int) ([]model.WantedRecord, error) {
	return fetchWanted(ctx, c.api, c.app, kind, pageSize)
}

func (c *sonarrClient) Search(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	return withRetry(ctx, "episode search", func() error {
		_, err := c.api.SendCommandContext(ctx, &sonarr.CommandRequest{Name: "EpisodeSearch", EpisodeIDs: ids})
		return err
	})
}

func (c *sonarrClient) RemoveFromQueue(ctx context.Context, queueID int64, removeFromClient, blocklist bool) error {
	opts := &starr.QueueDeleteOpts{
		RemoveFromClient: &removeFromClient,
		BlockList:        blocklist,
	}
	if err := c.api.DeleteQueueContext(ctx, queueID, opts); err != nil {
		return wrapVendor(fmt.Sprintf("delete queue %d", queueID), err)
	}
	return nil
}

// ChildTitle resolves the episode title of a queue record.
func (c *sonarrClient) ChildTitle(ctx context.Context, rec model.QueueRecord) (string, error) {
	if rec.ChildID == 0 {
		return "", nil
	}

	episode, err := c.api.GetEpisodeByIDContext(ctx, rec.ChildID)
	if err != nil {
		return "", wrapVendor(fmt.Sprintf("get episode %d", rec.ChildID), err)
	}

	return episode.Title, nil
}
