package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"path"
	"strconv"
	"time"

	"github.com/javi11/huntarr/internal/arrs/model"
	"golift.io/starr"
)

type wantedPage struct {
	Page         int          `json:"page"`
	PageSize     int          `json:"pageSize"`
	TotalRecords int          `json:"totalRecords"`
	Records      []wantedJSON `json:"records"`
}

type wantedJSON struct {
	ID            int64  `json:"id"`
	Title         string `json:"title"`
	Monitored     bool   `json:"monitored"`
	SeriesID      int64  `json:"seriesId"`
	ArtistID      int64  `json:"artistId"`
	AuthorID      int64  `json:"authorId"`
	SeasonNumber  int    `json:"seasonNumber"`
	EpisodeNumber int    `json:"episodeNumber"`
	AirDateUtc    string `json:"airDateUtc"`
	ReleaseDate   string `json:"releaseDate"`
}

// fetchWanted reads the first page of /wanted/{missing,cutoff}. The parent id is
// the field named by the app type, or the record id for movie-like apps.
func fetchWanted(ctx context.Context, api starr.APIer, app model.AppType, kind model.WantedKind, pageSize int) ([]model.WantedRecord, error) {
	if pageSize <= 0 {
		pageSize = 100
	}

	req := &starr.PageReq{PageSize: pageSize, Page: 1, SortKey: wantedSortKey(app), SortDir: starr.SortDescend}
	req.Set("monitored", "true")

	var page wantedPage
	uri := path.Join(app.APIVersion(), "wanted", string(kind))
	if err := api.GetInto(ctx, starr.Request{URI: uri, Query: req.Params()}, &page); err != nil {
		return nil, wrapVendor("get wanted "+string(kind), err)
	}

	records := make([]model.WantedRecord, 0, len(page.Records))
	for _, r := range page.Records {
		rec := model.WantedRecord{
			SearchID:  r.ID,
			ParentID:  r.ID,
			Title:     r.Title,
			Monitored: r.Monitored,
			Season:    r.SeasonNumber,
			Episode:   r.EpisodeNumber,
			AirDate:   parseVendorTime(r.AirDateUtc, r.ReleaseDate),
		}

		switch {
		case r.SeriesID > 0:
			rec.ParentID = r.SeriesID
		case r.ArtistID > 0:
			rec.ParentID = r.ArtistID
		case r.AuthorID > 0:
			rec.ParentID = r.AuthorID
		}

		records = append(records, rec)
	}

	return records, nil
}

func wantedSortKey(app model.AppType) string {
	switch app {
	case model.Sonarr, model.Whisparr:
		return "airDateUtc"
	case model.Lidarr, model.Readarr:
		return "releaseDate"
	default:
		return "movieMetadata.sortTitle"
	}
}

func parseVendorTime(values ...string) time.Time {
	for _, v := range values {
		if v == "" {
			continue
		}
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t
		}
	}
	return time.Time{}
}

type commandBody struct {
	Name     string  `json:"name"`
	AlbumIDs []int64 `json:"albumIds,omitempty"`
	BookIDs  []int64 `json:"bookIds,omitempty"`
}

type commandResponse struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

// postCommand posts a command for the apps whose starr package lacks a typed request for it.
func postCommand(ctx context.Context, api starr.APIer, app model.AppType, body commandBody) (*commandResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal command: %w", err)
	}

	var resp commandResponse
	req := starr.Request{URI: path.Join(app.APIVersion(), "command"), Body: bytes.NewReader(payload)}
	if err := api.PostInto(ctx, req, &resp); err != nil {
		return nil, err
	}

	return &resp, nil
}

// deleteQueue removes a queue record through the generic API.
func deleteQueue(ctx context.Context, api starr.APIer, app model.AppType, queueID int64, removeFromClient, blocklist bool) error {
	query := url.Values{}
	query.Set("removeFromClient", strconv.FormatBool(removeFromClient))
	query.Set("blocklist", strconv.FormatBool(blocklist))

	uri := path.Join(app.APIVersion(), "queue", strconv.FormatInt(queueID, 10))
	return api.DeleteAny(ctx, starr.Request{URI: uri, Query: query})
}
