package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/revstat/internal/adapters/http/api"
	"github.com/okian/revstat/internal/adapters/repository"
	"github.com/okian/revstat/internal/domain/scoring"
	"github.com/okian/revstat/internal/domain/types"
)

// memDeps serves queries from an in-memory document.
type memDeps struct {
	db       repository.DB
	statsErr error
}

func (m *memDeps) TopN(_ context.Context, q repository.Query) (types.Ranking, error) {
	return m.db.TopN(q)
}

func (m *memDeps) Rank(_ context.Context, q repository.Query, key string) (types.Entry, error) {
	return m.db.Rank(q, key)
}

func (m *memDeps) Stats(context.Context) (repository.Stats, error) {
	if m.statsErr != nil {
		return repository.Stats{}, m.statsErr
	}
	return repository.Stats{Path: "stats.json", Producers: len(m.db), Windows: 1}, nil
}

func entry(name string, pos, neg int64) scoring.Entry {
	return scoring.Entry{Name: name, Score: scoring.Score{Positive: pos, Negative: neg}}
}

func testDB() repository.DB {
	return repository.DB{"mail": {"v6.9": scoring.Result{
		Individual: scoring.Sheet{
			"ann@corp.example": entry("Ann", 3, 0),
			"bo@corp.example":  entry("Bo", 3, 1),
			"cy@other.example": entry("Cy", 1, 0),
		},
		Corporate: scoring.Sheet{
			"Corp":  entry("Corp", 6, 1),
			"Other": entry("Other", 1, 0),
		},
	}}}
}

func newMux(deps api.Dependencies, maxLimit int) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps, maxLimit).Register(context.Background(), mux)
	return mux
}

func get(mux *http.ServeMux, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func TestServer_Register(t *testing.T) {
	Convey("Given an inspector over a stats document", t, func() {
		mux := newMux(&memDeps{db: testDB()}, 2)

		Convey("Then the health endpoint serves metrics", func() {
			w := get(mux, "/healthz")
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("Then the stats endpoint describes the document", func() {
			w := get(mux, "/stats")
			So(w.Code, ShouldEqual, http.StatusOK)
			var s repository.Stats
			So(json.Unmarshal(w.Body.Bytes(), &s), ShouldBeNil)
			So(s.Producers, ShouldEqual, 1)
		})

		Convey("Then unknown paths are not found", func() {
			So(get(mux, "/unknown").Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("Then writes are refused", func() {
			req := httptest.NewRequest(http.MethodPost, "/leaderboard", nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestLeaderboard(t *testing.T) {
	Convey("Given an inspector with a limit cap of 2", t, func() {
		mux := newMux(&memDeps{db: testDB()}, 2)

		Convey("When the leaderboard is requested without a limit", func() {
			w := get(mux, "/leaderboard?producer=mail&release=v6.9")

			Convey("Then the capped, tie-ranked head is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var got []types.Entry
				So(json.Unmarshal(w.Body.Bytes(), &got), ShouldBeNil)
				So(got, ShouldResemble, []types.Entry{
					{Rank: 1, Key: "ann@corp.example", Name: "Ann", Value: 3},
					{Rank: 1, Key: "bo@corp.example", Name: "Bo", Value: 3},
				})
			})
		})

		Convey("When the corporate sheet is ranked by negative", func() {
			w := get(mux, "/leaderboard?producer=mail&release=v6.9&sheet=corporate&by=negative&limit=1")
			var got []types.Entry
			So(json.Unmarshal(w.Body.Bytes(), &got), ShouldBeNil)
			So(got, ShouldHaveLength, 1)
			So(got[0].Key, ShouldEqual, "Corp")
		})

		Convey("When the request is malformed", func() {
			So(get(mux, "/leaderboard?release=v6.9").Code, ShouldEqual, http.StatusBadRequest)
			So(get(mux, "/leaderboard?producer=mail&release=v6.9&limit=zero").Code, ShouldEqual, http.StatusBadRequest)
			So(get(mux, "/leaderboard?producer=mail&release=v6.9&limit=3").Code, ShouldEqual, http.StatusBadRequest)
			So(get(mux, "/leaderboard?producer=mail&release=v6.9&by=karma").Code, ShouldEqual, http.StatusBadRequest)
			So(get(mux, "/leaderboard?producer=mail&release=v6.9&sheet=team").Code, ShouldEqual, http.StatusBadRequest)
			So(get(mux, "/leaderboard?producer=mail&release=v6.9&per=fortnight").Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the window does not exist", func() {
			So(get(mux, "/leaderboard?producer=mail&release=v7.0").Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestRank(t *testing.T) {
	Convey("Given an inspector", t, func() {
		mux := newMux(&memDeps{db: testDB()}, 10)

		Convey("When a known key is requested", func() {
			w := get(mux, "/rank/cy@other.example?producer=mail&release=v6.9")

			Convey("Then its dense rank is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var e types.Entry
				So(json.Unmarshal(w.Body.Bytes(), &e), ShouldBeNil)
				So(e.Rank, ShouldEqual, 2)
				So(e.Value, ShouldEqual, 1)
			})
		})

		Convey("When an organization is requested", func() {
			w := get(mux, "/rank/Corp?producer=mail&release=v6.9&sheet=corporate")
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("When the key is unknown or missing", func() {
			So(get(mux, "/rank/nobody@example.com?producer=mail&release=v6.9").Code, ShouldEqual, http.StatusNotFound)
			So(get(mux, "/rank/?producer=mail&release=v6.9").Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestStatsErrors(t *testing.T) {
	Convey("Given a store that cannot be read", t, func() {
		mux := newMux(&memDeps{statsErr: errors.New("disk gone")}, 10)

		Convey("Then stats reports an internal error", func() {
			w := get(mux, "/stats")
			So(w.Code, ShouldEqual, http.StatusInternalServerError)
			So(w.Body.String(), ShouldContainSubstring, "internal_error")
		})
	})
}
