package bili

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"bilisort/internal/common"
	"bilisort/internal/model"
	"bilisort/internal/service"
)

// resourceListData is the item-list endpoint's payload.
type resourceListData struct {
	Medias []struct {
		ID      int64  `json:"id"`
		BVID    string `json:"bvid"`
		Title   string `json:"title"`
		Cover   string `json:"cover"`
		Upper   struct {
			Name string `json:"name"`
		} `json:"upper"`
		CntInfo struct {
			Play int64 `json:"play"`
		} `json:"cnt_info"`
		FavTime int64  `json:"fav_time"`
		Intro   string `json:"intro"`
		Attr    int    `json:"attr"`
	} `json:"medias"`
	HasMore bool `json:"has_more"`
	Total   int  `json:"total"`
}

// FetchVideos fetches up to maxPages pages of a folder starting at
// startPage, with a fixed delay between consecutive pages.
//
// Per-page policy: a transport error stops the window early and returns
// everything fetched so far with HasMore=true and NextPage pointing at the
// failed page, so a later call retries that exact page. A rate-limited page
// is retried once in place after a cooldown; if the retry is also
// rate-limited, the partial window is returned together with the rate-limit
// error so the caller can persist what it has.
func (c *Client) FetchVideos(ctx context.Context, folderID int64, startPage, maxPages int) (service.VideoWindow, error) {
	window := service.VideoWindow{
		Videos:   []model.Video{},
		NextPage: startPage,
		HasMore:  true,
	}

	page := startPage
	pagesFetched := 0

	for window.HasMore && pagesFetched < maxPages {
		data, err := c.fetchPageWithRetry(ctx, folderID, page)
		if err != nil {
			if errors.Is(err, common.ErrRateLimited) {
				window.NextPage = page
				window.HasMore = true
				return window, err
			}
			// Transport error: stop early, cursor stays on the failed page.
			slog.Warn("page fetch failed, returning partial window",
				"folder_id", folderID,
				"page", page,
				"error", err)
			window.NextPage = page
			window.HasMore = true
			return window, nil
		}

		if data.Total > 0 {
			window.Total = data.Total
		}

		for _, m := range data.Medias {
			window.Videos = append(window.Videos, model.Video{
				BVID:        m.BVID,
				ResourceID:  m.ID,
				Title:       m.Title,
				Cover:       m.Cover,
				UpperName:   m.Upper.Name,
				PlayCount:   m.CntInfo.Play,
				FavoritedAt: time.Unix(m.FavTime, 0).UTC(),
				Intro:       m.Intro,
				Tags:        []string{},
				Attr:        m.Attr,
			})
		}

		window.HasMore = data.HasMore
		page++
		pagesFetched++
		window.NextPage = page

		if window.HasMore && pagesFetched < maxPages {
			select {
			case <-ctx.Done():
				return window, ctx.Err()
			case <-time.After(c.pageDelay):
			}
		}
	}

	return window, nil
}

// fetchPageWithRetry fetches one page, retrying exactly once after a
// cooldown if the upstream rate-limits it.
func (c *Client) fetchPageWithRetry(ctx context.Context, folderID int64, page int) (*resourceListData, error) {
	for attempt := 0; ; attempt++ {
		data, err := c.fetchPage(ctx, folderID, page)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, common.ErrRateLimited) || attempt > 0 {
			return nil, err
		}

		slog.Warn("page rate limited, retrying after cooldown",
			"folder_id", folderID,
			"page", page,
			"cooldown", c.rateLimitCooldown)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.rateLimitCooldown):
		}
	}
}

func (c *Client) fetchPage(ctx context.Context, folderID int64, page int) (*resourceListData, error) {
	query := url.Values{
		"media_id": {strconv.FormatInt(folderID, 10)},
		"pn":       {strconv.Itoa(page)},
		"ps":       {strconv.Itoa(PageSize)},
	}
	env, err := c.get(ctx, pathResourceList, query)
	if err != nil {
		return nil, err
	}
	if env.Code != 0 || env.Data == nil {
		return nil, fmt.Errorf("item list failed: code %d: %s", env.Code, env.Message)
	}

	var data resourceListData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, fmt.Errorf("failed to decode item list: %w", err)
	}
	return &data, nil
}

// MoveVideo moves a resource between folders. The upstream's
// "already in target" code counts as success.
func (c *Client) MoveVideo(ctx context.Context, srcFolderID, dstFolderID int64, resourceID string) error {
	form := url.Values{
		"media_id":        {strconv.FormatInt(srcFolderID, 10)},
		"target_media_id": {strconv.FormatInt(dstFolderID, 10)},
		"resources":       {resourceID + ":2"}, // 2 = video resource type
		"csrf":            {c.creds.BiliJCT},
	}
	env, err := c.postForm(ctx, pathMove, form)
	if err != nil {
		return err
	}
	if env.Code == codeAlreadyInTarget {
		return nil
	}
	if env.Code != 0 {
		return fmt.Errorf("move failed: code %d: %s", env.Code, env.Message)
	}
	return nil
}
