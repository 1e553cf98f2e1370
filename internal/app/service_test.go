package app_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/NimnaKs/CG-COMPOSER/internal/adapters/repository"
	"github.com/NimnaKs/CG-COMPOSER/internal/app"
	"github.com/NimnaKs/CG-COMPOSER/internal/domain/cue"
	"github.com/NimnaKs/CG-COMPOSER/internal/domain/model"
	"github.com/NimnaKs/CG-COMPOSER/pkg/logger"
)

func init() {
	_ = logger.Init()
}

func seedMatch(t *testing.T, store repository.Store, matchID string) {
	t.Helper()
	err := store.Upsert(context.Background(), "demo-matches", matchID, repository.Document{
		"ticker_preview": "",
		"ticker_live":    "",
		"matchTitle":     "Final",
		"team1":          map[string]any{"id": "Lions", "imageUrl": ""},
		"team2":          map[string]any{"id": "Sharks", "imageUrl": ""},
	})
	if err != nil {
		t.Fatalf("seed match: %v", err)
	}
}

func newService(t *testing.T, store repository.Store) *app.Service {
	t.Helper()
	svc := app.New(
		app.WithStore(store),
		app.WithAllowList(cue.NewAllowList([]string{"4", "6", "WICKET"})),
		app.WithDisplayEndpoints("https://match-score.dflix.com", "/preview-score/", "/live-score/"),
	)
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("start service: %v", err)
	}
	return svc
}

func TestServiceToggle(t *testing.T) {
	ctx := context.Background()

	Convey("Given a started service with a selected match", t, func() {
		store := repository.NewMemoryStore()
		seedMatch(t, store, "m1")
		svc := newService(t, store)
		defer svc.Stop()
		So(svc.SelectMatch(ctx, "m1"), ShouldBeNil)

		Convey("When toggling the four cue on preview", func() {
			So(svc.Toggle(ctx, cue.Number(4), model.ChannelPreview), ShouldBeNil)

			Convey("Then the control flag is on", func() {
				doc, err := store.Get(ctx, "preview", "four")
				So(err, ShouldBeNil)
				So(doc["control"], ShouldBeTrue)
			})

			Convey("Then the match ticker carries the action", func() {
				doc, err := store.Get(ctx, "demo-matches", "m1")
				So(err, ShouldBeNil)
				So(doc["ticker_preview"], ShouldEqual, 4)
				So(doc["ticker_live"], ShouldEqual, "")
			})

			Convey("Then the sticker record is active", func() {
				doc, err := store.Get(ctx, "sticker_preview", "m1")
				So(err, ShouldBeNil)
				So(doc["type"], ShouldEqual, 4)
				So(doc["active"], ShouldBeTrue)
			})

			Convey("Then a history entry is recorded", func() {
				entries, err := svc.History(ctx)
				So(err, ShouldBeNil)
				So(len(entries), ShouldEqual, 1)
				So(entries[0].Action, ShouldEqual, 4)
				So(string(entries[0].Mode), ShouldEqual, "preview")
				So(entries[0].MatchID, ShouldEqual, "m1")
			})

			Convey("And when toggling it again", func() {
				So(svc.Toggle(ctx, cue.Number(4), model.ChannelPreview), ShouldBeNil)

				Convey("Then the overlay deactivates and the ticker clears", func() {
					doc, err := store.Get(ctx, "preview", "four")
					So(err, ShouldBeNil)
					So(doc["control"], ShouldBeFalse)

					match, err := store.Get(ctx, "demo-matches", "m1")
					So(err, ShouldBeNil)
					So(match["ticker_preview"], ShouldEqual, "")

					sticker, err := store.Get(ctx, "sticker_preview", "m1")
					So(err, ShouldBeNil)
					So(sticker["active"], ShouldBeFalse)
				})

				Convey("Then both toggles are in the history, newest first", func() {
					entries, err := svc.History(ctx)
					So(err, ShouldBeNil)
					So(len(entries), ShouldEqual, 2)
				})
			})
		})

		Convey("When toggling a symbolic cue on live", func() {
			So(svc.Toggle(ctx, cue.Symbol("WICKET"), model.ChannelLive), ShouldBeNil)

			doc, err := store.Get(ctx, "live", "wicket")
			So(err, ShouldBeNil)
			So(doc["control"], ShouldBeTrue)

			match, err := store.Get(ctx, "demo-matches", "m1")
			So(err, ShouldBeNil)
			So(match["ticker_live"], ShouldEqual, "WICKET")
		})

		Convey("When toggling a cue whose control document carries a title", func() {
			So(store.Upsert(ctx, "preview", "common", repository.Document{
				"control": false,
				"title":   "Player of the Match",
			}), ShouldBeNil)

			So(svc.Toggle(ctx, cue.Symbol("COMMON"), model.ChannelPreview), ShouldBeNil)

			Convey("Then the title survives the overwrite", func() {
				doc, err := store.Get(ctx, "preview", "common")
				So(err, ShouldBeNil)
				So(doc["control"], ShouldBeTrue)
				So(doc["title"], ShouldEqual, "Player of the Match")
			})
		})

		Convey("When toggling an unregistered action", func() {
			err := svc.Toggle(ctx, cue.Symbol("NOBALL"), model.ChannelPreview)

			Convey("Then the toggle aborts before any write", func() {
				So(errors.Is(err, cue.ErrUnknownCue), ShouldBeTrue)
				_, err := store.Get(ctx, "preview", "four")
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})
		})
	})

	Convey("Given a started service without a selected match", t, func() {
		svc := newService(t, repository.NewMemoryStore())
		defer svc.Stop()

		Convey("Then toggling fails with no active match", func() {
			err := svc.Toggle(ctx, cue.Number(4), model.ChannelPreview)
			So(errors.Is(err, app.ErrNoActiveMatch), ShouldBeTrue)
		})
	})

	Convey("Given a service that was never started", t, func() {
		svc := app.New()

		Convey("Then operations report the not-started state", func() {
			err := svc.Toggle(ctx, cue.Number(4), model.ChannelPreview)
			So(errors.Is(err, app.ErrNotStarted), ShouldBeTrue)
		})
	})
}

// flakyStore fails match reads on demand while delegating everything
// else to the in-memory store.
type flakyStore struct {
	*repository.MemoryStore
	failMatchGets bool
}

func (f *flakyStore) Get(ctx context.Context, collection, key string) (repository.Document, error) {
	if f.failMatchGets && collection == "demo-matches" {
		return nil, fmt.Errorf("get %s/%s: %w", collection, key, repository.ErrNotFound)
	}
	return f.MemoryStore.Get(ctx, collection, key)
}

func TestServiceTogglePartialFailure(t *testing.T) {
	ctx := context.Background()

	Convey("Given a match record that vanishes mid-toggle", t, func() {
		store := &flakyStore{MemoryStore: repository.NewMemoryStore()}
		seedMatch(t, store, "m1")
		svc := newService(t, store)
		defer svc.Stop()
		So(svc.SelectMatch(ctx, "m1"), ShouldBeNil)

		store.failMatchGets = true
		err := svc.Toggle(ctx, cue.Number(4), model.ChannelPreview)

		Convey("Then the toggle reports the missing match", func() {
			So(errors.Is(err, app.ErrMatchNotFound), ShouldBeTrue)
		})

		Convey("Then the control flag is already committed", func() {
			doc, err := store.MemoryStore.Get(ctx, "preview", "four")
			So(err, ShouldBeNil)
			So(doc["control"], ShouldBeTrue)
		})

		Convey("Then the ticker and sticker were never written", func() {
			match, err := store.MemoryStore.Get(ctx, "demo-matches", "m1")
			So(err, ShouldBeNil)
			So(match["ticker_preview"], ShouldEqual, "")

			_, err = store.MemoryStore.Get(ctx, "sticker_preview", "m1")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})
	})
}

func TestServiceHistoryBound(t *testing.T) {
	ctx := context.Background()

	Convey("Given more history entries than the view limit", t, func() {
		store := repository.NewMemoryStore()
		seedMatch(t, store, "m1")
		svc := newService(t, store)
		defer svc.Stop()
		So(svc.SelectMatch(ctx, "m1"), ShouldBeNil)

		base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
		for i := 0; i < 25; i++ {
			So(store.Append(ctx, "history", repository.Document{
				"action":    i,
				"mode":      "preview",
				"timestamp": model.Timestamp(base.Add(time.Duration(i) * time.Second)),
				"matchId":   "m1",
			}), ShouldBeNil)
		}

		entries, err := svc.History(ctx)
		So(err, ShouldBeNil)

		Convey("Then the view holds the 20 newest entries, newest first", func() {
			So(len(entries), ShouldEqual, 20)
			So(entries[0].Action, ShouldEqual, 24)
			So(entries[19].Action, ShouldEqual, 5)
		})
	})
}

func TestServiceCommonTitle(t *testing.T) {
	ctx := context.Background()

	Convey("Given a started service with a selected match", t, func() {
		store := repository.NewMemoryStore()
		seedMatch(t, store, "m1")
		svc := newService(t, store)
		defer svc.Stop()
		So(svc.SelectMatch(ctx, "m1"), ShouldBeNil)

		Convey("When setting a title on preview", func() {
			So(svc.SetCommonTitle(ctx, model.ChannelPreview, "Toss won by Lions"), ShouldBeNil)

			Convey("Then both channels carry the title but only preview is on", func() {
				preview, err := store.Get(ctx, "preview", "common")
				So(err, ShouldBeNil)
				So(preview["control"], ShouldBeTrue)
				So(preview["title"], ShouldEqual, "Toss won by Lions")

				live, err := store.Get(ctx, "live", "common")
				So(err, ShouldBeNil)
				So(live["control"], ShouldBeFalse)
				So(live["title"], ShouldEqual, "Toss won by Lions")
			})

			Convey("And when invoked again on the active channel", func() {
				So(svc.SetCommonTitle(ctx, model.ChannelPreview, "ignored"), ShouldBeNil)

				Convey("Then the overlay switches off and keeps its title", func() {
					preview, err := store.Get(ctx, "preview", "common")
					So(err, ShouldBeNil)
					So(preview["control"], ShouldBeFalse)
					So(preview["title"], ShouldEqual, "Toss won by Lions")
				})
			})
		})

		Convey("When activating with a blank title", func() {
			err := svc.SetCommonTitle(ctx, model.ChannelPreview, "   ")

			So(errors.Is(err, app.ErrTitleRequired), ShouldBeTrue)
		})
	})
}

func TestServiceSelectMatchAndAlerts(t *testing.T) {
	ctx := context.Background()

	Convey("Given a started service with two match records", t, func() {
		store := repository.NewMemoryStore()
		seedMatch(t, store, "m1")
		seedMatch(t, store, "m2")
		svc := newService(t, store)
		defer svc.Stop()

		Convey("When selecting an unknown match", func() {
			err := svc.SelectMatch(ctx, "missing")

			So(errors.Is(err, app.ErrMatchNotFound), ShouldBeTrue)
			_, ok := svc.ActiveMatch()
			So(ok, ShouldBeFalse)
		})

		Convey("When selecting a match", func() {
			So(svc.SelectMatch(ctx, "m1"), ShouldBeNil)

			matchID, ok := svc.ActiveMatch()
			So(ok, ShouldBeTrue)
			So(matchID, ShouldEqual, "m1")

			Convey("Then the display endpoints point at it", func() {
				preview, err := svc.DisplayURL(model.ChannelPreview)
				So(err, ShouldBeNil)
				So(preview, ShouldEqual, "https://match-score.dflix.com/preview-score/m1")

				live, err := svc.DisplayURL(model.ChannelLive)
				So(err, ShouldBeNil)
				So(live, ShouldEqual, "https://match-score.dflix.com/live-score/m1")
			})

			Convey("When the feed reports an allow-listed action", func() {
				So(store.Update(ctx, "demo-matches", "m1", repository.Document{"last_action": "WICKET"}), ShouldBeNil)

				Convey("Then exactly one alert is queued", func() {
					alerts := svc.Alerts()
					So(len(alerts), ShouldEqual, 1)
					So(alerts[0].Message, ShouldContainSubstring, "WICKET")

					Convey("And dismissing it empties the queue", func() {
						So(svc.DismissAlert(alerts[0].ID), ShouldBeTrue)
						So(len(svc.Alerts()), ShouldEqual, 0)
						So(svc.DismissAlert(alerts[0].ID), ShouldBeFalse)
					})
				})
			})

			Convey("When the feed reports an action outside the allow-list", func() {
				So(store.Update(ctx, "demo-matches", "m1", repository.Document{"last_action": "NOBALL"}), ShouldBeNil)

				So(len(svc.Alerts()), ShouldEqual, 0)
			})

			Convey("When switching to the other match", func() {
				So(svc.SelectMatch(ctx, "m2"), ShouldBeNil)

				Convey("Then events on the old match no longer alert", func() {
					So(store.Update(ctx, "demo-matches", "m1", repository.Document{"last_action": "WICKET"}), ShouldBeNil)
					So(len(svc.Alerts()), ShouldEqual, 0)

					So(store.Update(ctx, "demo-matches", "m2", repository.Document{"last_action": "6"}), ShouldBeNil)
					So(len(svc.Alerts()), ShouldEqual, 1)
				})
			})
		})

		Convey("When listing the catalog", func() {
			matches, err := svc.Matches(ctx)
			So(err, ShouldBeNil)

			So(len(matches), ShouldEqual, 2)
			So(matches[0].ID, ShouldEqual, "m1")
			So(matches[0].MatchTitle, ShouldEqual, "Final")
			So(matches[0].Team1.ID, ShouldEqual, "Lions")
		})
	})
}
