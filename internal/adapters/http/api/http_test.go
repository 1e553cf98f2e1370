package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/NimnaKs/CG-COMPOSER/internal/adapters/http/api"
	"github.com/NimnaKs/CG-COMPOSER/internal/adapters/repository"
	"github.com/NimnaKs/CG-COMPOSER/internal/app"
	"github.com/NimnaKs/CG-COMPOSER/internal/domain/cue"
	"github.com/NimnaKs/CG-COMPOSER/pkg/logger"
)

func init() {
	_ = logger.Init()
}

type fixture struct {
	store *repository.MemoryStore
	svc   *app.Service
	ts    *httptest.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	store := repository.NewMemoryStore()
	if err := store.Upsert(ctx, "demo-matches", "m1", repository.Document{
		"ticker_preview": "",
		"ticker_live":    "",
		"matchTitle":     "Final",
	}); err != nil {
		t.Fatalf("seed match: %v", err)
	}

	svc := app.New(
		app.WithStore(store),
		app.WithAllowList(cue.NewAllowList([]string{"4", "6", "WICKET"})),
		app.WithDisplayEndpoints("https://match-score.dflix.com", "/preview-score/", "/live-score/"),
	)
	if err := svc.Start(ctx); err != nil {
		t.Fatalf("start service: %v", err)
	}

	mux := http.NewServeMux()
	api.NewServer(svc, svc).Register(ctx, mux)
	ts := httptest.NewServer(mux)

	t.Cleanup(func() {
		ts.Close()
		svc.Stop()
	})
	return &fixture{store: store, svc: svc, ts: ts}
}

func (f *fixture) get(t *testing.T, path string) (int, map[string]any) {
	t.Helper()
	resp, err := http.Get(f.ts.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	return decode(t, resp)
}

func (f *fixture) post(t *testing.T, path, body string) (int, map[string]any) {
	t.Helper()
	resp, err := http.Post(f.ts.URL+path, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	return decode(t, resp)
}

func (f *fixture) del(t *testing.T, path string) (int, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(http.MethodDelete, f.ts.URL+path, nil)
	if err != nil {
		t.Fatalf("build DELETE %s: %v", path, err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE %s: %v", path, err)
	}
	return decode(t, resp)
}

func decode(t *testing.T, resp *http.Response) (int, map[string]any) {
	t.Helper()
	defer resp.Body.Close()
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp.StatusCode, body
}

func TestMatchEndpoints(t *testing.T) {
	Convey("Given a running API", t, func() {
		f := newFixture(t)

		Convey("When listing the catalog", func() {
			status, body := f.get(t, "/matches")

			So(status, ShouldEqual, http.StatusOK)
			matches := body["matches"].([]any)
			So(len(matches), ShouldEqual, 1)
		})

		Convey("When no match is selected", func() {
			status, body := f.get(t, "/match")

			So(status, ShouldEqual, http.StatusOK)
			So(body["selected"], ShouldBeFalse)
		})

		Convey("When selecting a match", func() {
			status, _ := f.post(t, "/match", `{"match_id":"m1"}`)
			So(status, ShouldEqual, http.StatusOK)

			status, body := f.get(t, "/match")
			So(status, ShouldEqual, http.StatusOK)
			So(body["selected"], ShouldBeTrue)
			So(body["match_id"], ShouldEqual, "m1")

			Convey("Then the screens endpoint serves both URLs", func() {
				status, body := f.get(t, "/screens")
				So(status, ShouldEqual, http.StatusOK)
				So(body["preview"], ShouldEqual, "https://match-score.dflix.com/preview-score/m1")
				So(body["live"], ShouldEqual, "https://match-score.dflix.com/live-score/m1")
			})
		})

		Convey("When selecting an unknown match", func() {
			status, _ := f.post(t, "/match", `{"match_id":"nope"}`)

			So(status, ShouldEqual, http.StatusNotFound)
		})

		Convey("When the selection body is malformed", func() {
			status, _ := f.post(t, "/match", `{`)

			So(status, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When asking for screens with no selection", func() {
			status, _ := f.get(t, "/screens")

			So(status, ShouldEqual, http.StatusConflict)
		})
	})
}

func TestToggleEndpoint(t *testing.T) {
	Convey("Given a running API with a selected match", t, func() {
		f := newFixture(t)
		status, _ := f.post(t, "/match", `{"match_id":"m1"}`)
		So(status, ShouldEqual, http.StatusOK)

		Convey("When toggling a numeric cue", func() {
			status, body := f.post(t, "/toggle", `{"action":"4","channel":"preview"}`)

			So(status, ShouldEqual, http.StatusOK)
			So(body["status"], ShouldEqual, "ok")

			Convey("Then the refreshed state shows it active", func() {
				status, body := f.get(t, "/state?channel=preview&refresh=true")
				So(status, ShouldEqual, http.StatusOK)
				cues := body["cues"].(map[string]any)
				four := cues["four"].(map[string]any)
				So(four["control"], ShouldBeTrue)
			})

			Convey("Then the history endpoint records it", func() {
				status, body := f.get(t, "/history")
				So(status, ShouldEqual, http.StatusOK)
				entries := body["entries"].([]any)
				So(len(entries), ShouldEqual, 1)
				entry := entries[0].(map[string]any)
				So(entry["mode"], ShouldEqual, "preview")
			})
		})

		Convey("When toggling an unknown action", func() {
			status, _ := f.post(t, "/toggle", `{"action":"NOBALL","channel":"preview"}`)

			So(status, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When toggling on an unknown channel", func() {
			status, _ := f.post(t, "/toggle", `{"action":"4","channel":"studio"}`)

			So(status, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the action is missing", func() {
			status, _ := f.post(t, "/toggle", `{"channel":"preview"}`)

			So(status, ShouldEqual, http.StatusBadRequest)
		})
	})

	Convey("Given a running API without a selected match", t, func() {
		f := newFixture(t)

		Convey("Then toggling conflicts", func() {
			status, _ := f.post(t, "/toggle", `{"action":"4","channel":"preview"}`)

			So(status, ShouldEqual, http.StatusConflict)
		})
	})
}

func TestTitleEndpoint(t *testing.T) {
	Convey("Given a running API with a selected match", t, func() {
		f := newFixture(t)
		status, _ := f.post(t, "/match", `{"match_id":"m1"}`)
		So(status, ShouldEqual, http.StatusOK)

		Convey("When setting a common title", func() {
			status, _ := f.post(t, "/title", `{"channel":"preview","title":"Toss won by Lions"}`)

			So(status, ShouldEqual, http.StatusOK)

			Convey("Then both channels carry the title", func() {
				ctx := context.Background()
				preview, err := f.store.Get(ctx, "preview", "common")
				So(err, ShouldBeNil)
				So(preview["control"], ShouldBeTrue)

				live, err := f.store.Get(ctx, "live", "common")
				So(err, ShouldBeNil)
				So(live["control"], ShouldBeFalse)
				So(live["title"], ShouldEqual, "Toss won by Lions")
			})
		})

		Convey("When activating with a blank title", func() {
			status, _ := f.post(t, "/title", `{"channel":"preview","title":""}`)

			So(status, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestAlertEndpoints(t *testing.T) {
	Convey("Given a running API with a selected match", t, func() {
		f := newFixture(t)
		status, _ := f.post(t, "/match", `{"match_id":"m1"}`)
		So(status, ShouldEqual, http.StatusOK)

		Convey("When the feed reports an allow-listed action", func() {
			ctx := context.Background()
			So(f.store.Update(ctx, "demo-matches", "m1", repository.Document{"last_action": "WICKET"}), ShouldBeNil)

			status, body := f.get(t, "/alerts")
			So(status, ShouldEqual, http.StatusOK)
			alerts := body["alerts"].([]any)
			So(len(alerts), ShouldEqual, 1)

			Convey("And dismissing it empties the queue", func() {
				id := alerts[0].(map[string]any)["id"].(string)
				status, _ := f.del(t, "/alerts/"+id)
				So(status, ShouldEqual, http.StatusOK)

				status, body := f.get(t, "/alerts")
				So(status, ShouldEqual, http.StatusOK)
				So(len(body["alerts"].([]any)), ShouldEqual, 0)
			})
		})

		Convey("When dismissing an unknown alert", func() {
			status, _ := f.del(t, "/alerts/nope")

			So(status, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestStatsEndpoint(t *testing.T) {
	Convey("Given a running API", t, func() {
		f := newFixture(t)

		status, body := f.get(t, "/stats")

		So(status, ShouldEqual, http.StatusOK)
		So(body["started"], ShouldBeTrue)
	})
}
