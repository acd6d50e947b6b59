package bili

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/url"
	"strconv"
	"strings"

	"bilisort/internal/common"
	"bilisort/internal/model"
	"bilisort/internal/service"
)

// CheckAuth resolves the owner identity behind the configured credentials.
func (c *Client) CheckAuth(ctx context.Context) (service.AuthInfo, error) {
	if c.creds.SESSDATA == "" {
		return service.AuthInfo{}, common.ErrNotAuthenticated
	}

	env, err := c.get(ctx, pathNav, nil)
	if err != nil {
		return service.AuthInfo{}, err
	}

	var data struct {
		IsLogin bool   `json:"isLogin"`
		Mid     int64  `json:"mid"`
		Uname   string `json:"uname"`
	}
	if env.Code != 0 || env.Data == nil {
		return service.AuthInfo{}, nil
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return service.AuthInfo{}, fmt.Errorf("failed to decode nav data: %w", err)
	}

	// Prefer the cookie identity; fall back to the response's mid.
	uid := c.creds.DedeUserID
	if uid == "" {
		uid = strconv.FormatInt(data.Mid, 10)
	}

	return service.AuthInfo{
		LoggedIn: data.IsLogin,
		UID:      uid,
		Username: data.Uname,
	}, nil
}

// FetchFolders returns all folders owned by the given identity.
func (c *Client) FetchFolders(ctx context.Context, ownerID string) ([]model.Folder, error) {
	query := url.Values{"up_mid": {ownerID}}
	env, err := c.get(ctx, pathFolderList, query)
	if err != nil {
		return nil, err
	}
	if env.Code != 0 || env.Data == nil {
		return nil, fmt.Errorf("folder list failed: code %d: %s", env.Code, env.Message)
	}

	var data struct {
		List []struct {
			ID         int64  `json:"id"`
			Title      string `json:"title"`
			MediaCount int    `json:"media_count"`
		} `json:"list"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, fmt.Errorf("failed to decode folder list: %w", err)
	}

	folders := make([]model.Folder, 0, len(data.List))
	for _, f := range data.List {
		folders = append(folders, model.Folder{
			ID:           f.ID,
			Name:         f.Title,
			MediaCount:   f.MediaCount,
			SampleTitles: []string{},
		})
	}
	return folders, nil
}

// FetchFolderSample fetches one uniformly random page of the folder and
// returns up to 10 titles. Rate-limit errors propagate so the caller can
// checkpoint and pause; a folder known to be empty yields no request.
func (c *Client) FetchFolderSample(ctx context.Context, folderID int64, mediaCount int) ([]string, error) {
	if mediaCount <= 0 {
		return []string{}, nil
	}

	totalPages := (mediaCount + PageSize - 1) / PageSize
	page := 1 + rand.Intn(totalPages)

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
		return nil, fmt.Errorf("folder sample failed: code %d: %s", env.Code, env.Message)
	}

	var data resourceListData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, fmt.Errorf("failed to decode folder sample: %w", err)
	}

	titles := make([]string, 0, 10)
	for _, m := range data.Medias {
		if len(titles) == 10 {
			break
		}
		titles = append(titles, m.Title)
	}
	return titles, nil
}

// SortFolders reorders all of the user's folders; the argument is the full
// id list in desired order.
func (c *Client) SortFolders(ctx context.Context, folderIDs []int64) error {
	ids := make([]string, len(folderIDs))
	for i, id := range folderIDs {
		ids[i] = strconv.FormatInt(id, 10)
	}

	form := url.Values{
		"sort": {strings.Join(ids, ",")},
		"csrf": {c.creds.BiliJCT},
	}
	env, err := c.postForm(ctx, pathFolderSort, form)
	if err != nil {
		return err
	}
	if env.Code != 0 {
		return fmt.Errorf("folder sort failed: code %d: %s", env.Code, env.Message)
	}
	return nil
}

// RenameFolder changes a folder's title.
func (c *Client) RenameFolder(ctx context.Context, folderID int64, title string) error {
	form := url.Values{
		"media_id": {strconv.FormatInt(folderID, 10)},
		"title":    {title},
		"csrf":     {c.creds.BiliJCT},
	}
	env, err := c.postForm(ctx, pathFolderEdit, form)
	if err != nil {
		return err
	}
	if env.Code != 0 {
		return fmt.Errorf("folder rename failed: code %d: %s", env.Code, env.Message)
	}
	return nil
}
