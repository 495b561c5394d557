package clients

import (
	"context"
	"fmt"

	"github.com/javi11/huntarr/internal/arrs/model"
	errs "github.com/javi11/huntarr/internal/errors"
	"golift.io/starr/lidarr"
)

type lidarrClient struct {
	api *lidarr.Lidarr
}

func (c *lidarrClient) AppType() model.AppType { return model.Lidarr }

func (c *lidarrClient) CheckConnection(ctx context.Context) error {
	return withRetry(ctx, "system status", func() error {
		_, err := c.api.GetSystemStatusContext(ctx)
		return err
	})
}

func (c *lidarrClient) GetQueue(ctx context.Context) ([]model.QueueRecord, error) {
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
			ForeignID:      q.ArtistID,
			ChildID:        q.AlbumID,
			Title:          q.Title,
			Size:           q.Size,
			SizeLeft:       q.Sizeleft,
			Status:         q.Status,
			TrackedStatus:  q.TrackedDownloadStatus,
			TimeLeft:       q.Timeleft,
			DownloadClient: q.DownloadClient,
			Protocol:       string(q.Protocol),
			Quality:        qualityName(q.Quality),
			Messages:       statusMessages(q.StatusMessages),
		})
	}

	return records, nil
}

func (c *lidarrClient) GetItem(ctx context.Context, id int64) (*model.Item, error) {
	artist, err := c.api.GetArtistByIDContext(ctx, id)
	if err != nil {
		return nil, wrapVendor(fmt.Sprintf("get artist %d", id), err)
	}

	item := &model.Item{
		ID:        artist.ID,
		Title:     artist.ArtistName,
		Monitored: artist.Monitored,
	}
	if artist.Statistics != nil {
		item.FileCount = artist.Statistics.TrackFileCount
		item.HasFile = artist.Statistics.TrackFileCount > 0
		item.SizeBytes = int64(artist.Statistics.SizeOnDisk)
	}

	return item, nil
}

func (c *lidarrClient) GetFile(context.Context, int64) (*model.FileInfo, error) {
	return nil, errs.ErrUnsupported
}

func (c *lidarrClient) Wanted(ctx context.Context, kind model.WantedKind, pageSize int) ([]model.WantedRecord, error) {
	return fetchWanted(ctx, c.api, model.Lidarr, kind, pageSize)
}

func (c *lidarrClient) Search(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	return withRetry(ctx, "album search", func() error {
		_, err := postCommand(ctx, c.api, model.Lidarr, commandBody{Name: "AlbumSearch", AlbumIDs: ids})
		return err
	})
}

func (c *lidarrClient) RemoveFromQueue(ctx context.Context, queueID int64, removeFromClient, blocklist bool) error {
	if err := deleteQueue(ctx, c.api, model.Lidarr, queueID, removeFromClient, blocklist); err != nil {
		return wrapVendor(fmt.Sprintf("delete queue %d", queueID), err)
	}
	return nil
}

// ChildTitle resolves the album title of a queue record.
func (c *lidarrClient) ChildTitle(ctx context.Context, rec model.QueueRecord) (string, error) {
	if rec.ChildID == 0 {
		return "", nil
	}

	album, err := c.api.GetAlbumByIDContext(ctx, rec.ChildID)
	if err != nil {
		return "", wrapVendor(fmt.Sprintf("get album %d", rec.ChildID), err)
	}

	return album.Title, nil
}
