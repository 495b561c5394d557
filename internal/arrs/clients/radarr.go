package clients

import (
	"context"
	"fmt"

	"github.com/javi11/huntarr/internal/arrs/model"
	errs "github.com/javi11/huntarr/internal/errors"
	"golift.io/starr"
	"golift.io/starr/radarr"
)

// radarrClient serves Radarr and the Radarr-based Eros.
type radarrClient struct {
	app model.AppType
	api *radarr.Radarr
}

func (c *radarrClient) AppType() model.AppType { return c.app }

func (c *radarrClient) CheckConnection(ctx context.Context) error {
	return withRetry(ctx, "system status", func() error {
		_, err := c.api.GetSystemStatusContext(ctx)
		return err
	})
}

func (c *radarrClient) GetQueue(ctx context.Context) ([]model.QueueRecord, error) {
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
			ForeignID:      q.MovieID,
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

func (c *radarrClient) GetItem(ctx context.Context, id int64) (*model.Item, error) {
	movie, err := c.api.GetMovieByIDContext(ctx, id)
	if err != nil {
		return nil, wrapVendor(fmt.Sprintf("get movie %d", id), err)
	}

	item := &model.Item{
		ID:        movie.ID,
		Title:     movie.Title,
		Year:      movie.Year,
		Monitored: movie.Monitored,
		HasFile:   movie.HasFile,
		ImdbID:    movie.ImdbID,
		TmdbID:    movie.TmdbID,
		SizeBytes: movie.SizeOnDisk,
	}
	if movie.MovieFile != nil {
		item.FileID = movie.MovieFile.ID
		item.FileCount = 1
		item.Quality = qualityName(movie.MovieFile.Quality)
		item.SizeBytes = movie.MovieFile.Size
	}

	return item, nil
}

func (c *radarrClient) GetFile(ctx context.Context, fileID int64) (*model.FileInfo, error) {
	file, err := c.api.GetMovieFileByIDContext(ctx, fileID)
	if err != nil {
		return nil, wrapVendor(fmt.Sprintf("get movie file %d", fileID), err)
	}

	info := &model.FileInfo{
		ID:           file.ID,
		Quality:      qualityName(file.Quality),
		SizeBytes:    file.Size,
		ReleaseGroup: file.ReleaseGroup,
	}
	if file.Quality != nil && file.Quality.Quality != nil {
		info.Resolution = file.Quality.Quality.Resolution
	}

	return info, nil
}

func (c *radarrClient) Wanted(ctx context.Context, kind model.WantedKind, pageSize int) ([]model.WantedRecord, error) {
	return fetchWanted(ctx, c.api, c.app, kind, pageSize)
}

func (c *radarrClient) Search(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	return withRetry(ctx, "movies search", func() error {
		_, err := c.api.SendCommandContext(ctx, &radarr.CommandRequest{Name: "MoviesSearch", MovieIDs: ids})
		return err
	})
}

func (c *radarrClient) RemoveFromQueue(ctx context.Context, queueID int64, removeFromClient, blocklist bool) error {
	opts := &starr.QueueDeleteOpts{
		RemoveFromClient: &removeFromClient,
		BlockList:        blocklist,
	}
	if err := c.api.DeleteQueueContext(ctx, queueID, opts); err != nil {
		return wrapVendor(fmt.Sprintf("delete queue %d", queueID), err)
	}
	return nil
}

func (c *radarrClient) ChildTitle(context.Context, model.QueueRecord) (string, error) {
	return "", errs.ErrUnsupported
}
