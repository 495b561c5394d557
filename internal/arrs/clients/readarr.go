package clients

import (
	"context"
	"fmt"

	"github.com/javi11/huntarr/internal/arrs/model"
	errs "github.com/javi11/huntarr/internal/errors"
	"golift.io/starr/readarr"
)

type readarrClient struct {
	api *readarr.Readarr
}

func (c *readarrClient) AppType() model.AppType { return model.Readarr }

func (c *readarrClient) CheckConnection(ctx context.Context) error {
	return withRetry(ctx, "system status", func() error {
		_, err := c.api.GetSystemStatusContext(ctx)
		return err
	})
}

func (c *readarrClient) GetQueue(ctx context.Context) ([]model.QueueRecord, error) {
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
			ForeignID:      q.AuthorID,
			ChildID:        q.BookID,
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

func (c *readarrClient) GetItem(ctx context.Context, id int64) (*model.Item, error) {
	author, err := c.api.GetAuthorByIDContext(ctx, id)
	if err != nil {
		return nil, wrapVendor(fmt.Sprintf("get author %d", id), err)
	}

	item := &model.Item{
		ID:        author.ID,
		Title:     author.AuthorName,
		Monitored: author.Monitored,
	}
	if author.Statistics != nil {
		item.FileCount = author.Statistics.BookFileCount
		item.HasFile = author.Statistics.BookFileCount > 0
		item.SizeBytes = int64(author.Statistics.SizeOnDisk)
	}

	return item, nil
}

func (c *readarrClient) GetFile(context.Context, int64) (*model.FileInfo, error) {
	return nil, errs.ErrUnsupported
}

func (c *readarrClient) Wanted(ctx context.Context, kind model.WantedKind, pageSize int) ([]model.WantedRecord, error) {
	return fetchWanted(ctx, c.api, model.Readarr, kind, pageSize)
}

func (c *readarrClient) Search(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	return withRetry(ctx, "book search", func() error {
		_, err := postCommand(ctx, c.api, model.Readarr, commandBody{Name: "BookSearch", BookIDs: ids})
		return err
	})
}

func (c *readarrClient) RemoveFromQueue(ctx context.Context, queueID int64, removeFromClient, blocklist bool) error {
	if err := deleteQueue(ctx, c.api, model.Readarr, queueID, removeFromClient, blocklist); err != nil {
		return wrapVendor(fmt.Sprintf("delete queue %d", queueID), err)
	}
	return nil
}

// ChildTitle resolves the book title of a queue record.
func (c *readarrClient) ChildTitle(ctx context.Context, rec model.QueueRecord) (string, error) {
	if rec.ChildID == 0 {
		return "", nil
	}

	book, err := c.api.GetBookByIDContext(ctx, rec.ChildID)
	if err != nil {
		return "", wrapVendor(fmt.Sprintf("get book %d", rec.ChildID), err)
	}

	return book.Title, nil
}
