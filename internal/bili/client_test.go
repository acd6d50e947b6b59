package bili

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bilisort/internal/common"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{
		BaseURL: srv.URL,
		Credentials: Credentials{
			SESSDATA:   "test-sessdata",
			BiliJCT:    "test-csrf",
			DedeUserID: "12345",
		},
		PageDelay:         time.Millisecond,
		RateLimitCooldown: time.Millisecond,
	})
}

func writeEnvelope(w http.ResponseWriter, code int, data string) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"code":%d,"message":"","data":%s}`, code, data)
}

func TestCheckAuth(t *testing.T) {
	t.Run("no cookie", func(t *testing.T) {
		client := NewClient(Config{})
		_, err := client.CheckAuth(context.Background())
		assert.ErrorIs(t, err, common.ErrNotAuthenticated)
	})

	t.Run("logged in", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, pathNav, r.URL.Path)
			writeEnvelope(w, 0, `{"isLogin":true,"mid":67890,"uname":"tester"}`)
		}))

		info, err := client.CheckAuth(context.Background())
		require.NoError(t, err)
		assert.True(t, info.LoggedIn)
		// The cookie identity wins over the response's mid.
		assert.Equal(t, "12345", info.UID)
		assert.Equal(t, "tester", info.Username)
	})

	t.Run("expired session", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			writeEnvelope(w, -101, `null`)
		}))

		info, err := client.CheckAuth(context.Background())
		require.NoError(t, err)
		assert.False(t, info.LoggedIn)
	})
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		handler   http.HandlerFunc
		wantRated bool
	}{
		{
			name: "412 is the rate limit signal",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusPreconditionFailed)
			},
			wantRated: true,
		},
		{
			name: "500 is a transport error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
		},
		{
			name: "anti-hotlink HTML is a transport error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "text/html")
				fmt.Fprint(w, "<html>blocked</html>")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, tt.handler)
			_, err := client.FetchFolders(context.Background(), "12345")
			require.Error(t, err)
			assert.Equal(t, tt.wantRated, errors.Is(err, common.ErrRateLimited))
		})
	}
}

func TestFetchFolders(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, pathFolderList, r.URL.Path)
		assert.Equal(t, "12345", r.URL.Query().Get("up_mid"))
		writeEnvelope(w, 0, `{"list":[
			{"id":1,"title":"默认收藏夹","media_count":120},
			{"id":2,"title":"music","media_count":0}
		]}`)
	}))

	folders, err := client.FetchFolders(context.Background(), "12345")
	require.NoError(t, err)
	require.Len(t, folders, 2)
	assert.Equal(t, int64(1), folders[0].ID)
	assert.Equal(t, "默认收藏夹", folders[0].Name)
	assert.Equal(t, 120, folders[0].MediaCount)
	assert.Empty(t, folders[1].SampleTitles)
}

func TestFetchFolderSample(t *testing.T) {
	t.Run("empty folder makes no request", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
			t.Fatal("unexpected request for empty folder")
		}))

		titles, err := client.FetchFolderSample(context.Background(), 7, 0)
		require.NoError(t, err)
		assert.Empty(t, titles)
	})

	t.Run("caps at ten titles", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			page, _ := strconv.Atoi(r.URL.Query().Get("pn"))
			assert.GreaterOrEqual(t, page, 1)
			assert.LessOrEqual(t, page, 2) // 25 items = 2 pages

			medias := `[`
			for i := 0; i < 20; i++ {
				if i > 0 {
					medias += ","
				}
				medias += fmt.Sprintf(`{"id":%d,"bvid":"BV%d","title":"t%d"}`, i, i, i)
			}
			medias += `]`
			writeEnvelope(w, 0, `{"medias":`+medias+`,"has_more":false,"total":25}`)
		}))

		titles, err := client.FetchFolderSample(context.Background(), 7, 25)
		require.NoError(t, err)
		assert.Len(t, titles, 10)
	})

	t.Run("rate limit propagates", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusPreconditionFailed)
		}))

		_, err := client.FetchFolderSample(context.Background(), 7, 25)
		assert.ErrorIs(t, err, common.ErrRateLimited)
	})
}

func mediasJSON(start, count int) string {
	out := `[`
	for i := 0; i < count; i++ {
		if i > 0 {
			out += ","
		}
		n := start + i
		out += fmt.Sprintf(`{"id":%d,"bvid":"BV%05d","title":"video %d","attr":0,"fav_time":1700000000}`, n, n, n)
	}
	return out + `]`
}

func TestFetchVideosWindow(t *testing.T) {
	t.Run("exhausts a 50 item folder in one window", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			page, _ := strconv.Atoi(r.URL.Query().Get("pn"))
			switch page {
			case 1, 2:
				writeEnvelope(w, 0, `{"medias":`+mediasJSON(page*100, 20)+`,"has_more":true,"total":50}`)
			case 3:
				writeEnvelope(w, 0, `{"medias":`+mediasJSON(300, 10)+`,"has_more":false,"total":50}`)
			default:
				t.Fatalf("unexpected page %d", page)
			}
		}))

		window, err := client.FetchVideos(context.Background(), 7, 1, 3)
		require.NoError(t, err)
		assert.Len(t, window.Videos, 50)
		assert.Equal(t, 50, window.Total)
		assert.False(t, window.HasMore)
		assert.Equal(t, 4, window.NextPage)
	})

	t.Run("stops at the window boundary with more remaining", func(t *testing.T) {
		var pages []int
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			page, _ := strconv.Atoi(r.URL.Query().Get("pn"))
			pages = append(pages, page)
			hasMore := page < 4
			writeEnvelope(w, 0, fmt.Sprintf(`{"medias":%s,"has_more":%t,"total":70}`, mediasJSON(page*100, 20), hasMore))
		}))

		window, err := client.FetchVideos(context.Background(), 7, 1, 3)
		require.NoError(t, err)
		assert.Len(t, window.Videos, 60)
		assert.True(t, window.HasMore)
		assert.Equal(t, 4, window.NextPage)
		assert.Equal(t, []int{1, 2, 3}, pages)

		// The next window resumes at the cursor and drains the rest.
		next, err := client.FetchVideos(context.Background(), 7, window.NextPage, 3)
		require.NoError(t, err)
		assert.False(t, next.HasMore)
		assert.Len(t, next.Videos, 20)
	})

	t.Run("transport error returns partial window without error", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			page, _ := strconv.Atoi(r.URL.Query().Get("pn"))
			if page == 2 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			writeEnvelope(w, 0, `{"medias":`+mediasJSON(100, 20)+`,"has_more":true,"total":70}`)
		}))

		window, err := client.FetchVideos(context.Background(), 7, 1, 3)
		require.NoError(t, err)
		assert.Len(t, window.Videos, 20)
		assert.True(t, window.HasMore)
		assert.Equal(t, 2, window.NextPage)
	})

	t.Run("rate limit retries once then propagates with partial window", func(t *testing.T) {
		var hits int
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			page, _ := strconv.Atoi(r.URL.Query().Get("pn"))
			if page == 2 {
				hits++
				w.WriteHeader(http.StatusPreconditionFailed)
				return
			}
			writeEnvelope(w, 0, `{"medias":`+mediasJSON(100, 20)+`,"has_more":true,"total":70}`)
		}))

		window, err := client.FetchVideos(context.Background(), 7, 1, 3)
		assert.ErrorIs(t, err, common.ErrRateLimited)
		assert.Equal(t, 2, hits)
		assert.Len(t, window.Videos, 20)
		assert.Equal(t, 2, window.NextPage)
		assert.True(t, window.HasMore)
	})

	t.Run("rate limit recovered by the in-place retry", func(t *testing.T) {
		var hits int
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			page, _ := strconv.Atoi(r.URL.Query().Get("pn"))
			if page == 2 && hits == 0 {
				hits++
				w.WriteHeader(http.StatusPreconditionFailed)
				return
			}
			hasMore := page < 3
			writeEnvelope(w, 0, fmt.Sprintf(`{"medias":%s,"has_more":%t,"total":50}`, mediasJSON(page*100, 10), hasMore))
		}))

		window, err := client.FetchVideos(context.Background(), 7, 1, 3)
		require.NoError(t, err)
		assert.Len(t, window.Videos, 30)
		assert.False(t, window.HasMore)
	})
}

func TestMoveVideo(t *testing.T) {
	tests := []struct {
		name    string
		code    int
		wantErr bool
	}{
		{name: "success", code: 0},
		{name: "already in target counts as success", code: codeAlreadyInTarget},
		{name: "other codes fail", code: -400, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				require.NoError(t, r.ParseForm())
				assert.Equal(t, pathMove, r.URL.Path)
				assert.Equal(t, "7", r.PostForm.Get("media_id"))
				assert.Equal(t, "9", r.PostForm.Get("target_media_id"))
				assert.Equal(t, "111:2", r.PostForm.Get("resources"))
				assert.Equal(t, "test-csrf", r.PostForm.Get("csrf"))
				writeEnvelope(w, tt.code, `null`)
			}))

			err := client.MoveVideo(context.Background(), 7, 9, "111")
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSortAndRenameFolders(t *testing.T) {
	t.Run("sort sends the id list in order", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, r.ParseForm())
			assert.Equal(t, pathFolderSort, r.URL.Path)
			assert.Equal(t, "3,1,2", r.PostForm.Get("sort"))
			writeEnvelope(w, 0, `null`)
		}))

		assert.NoError(t, client.SortFolders(context.Background(), []int64{3, 1, 2}))
	})

	t.Run("rename sends the new title", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, r.ParseForm())
			assert.Equal(t, pathFolderEdit, r.URL.Path)
			assert.Equal(t, "7", r.PostForm.Get("media_id"))
			assert.Equal(t, "watched", r.PostForm.Get("title"))
			writeEnvelope(w, 0, `null`)
		}))

		assert.NoError(t, client.RenameFolder(context.Background(), 7, "watched"))
	})
}
