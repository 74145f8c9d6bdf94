package model_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/revstat/internal/domain/identity"
	model "github.com/okian/revstat/internal/domain/model"
)

func TestParseRole(t *testing.T) {
	convey.Convey("Given role strings", t, func() {
		convey.Convey("When the role is canonical or a trailer name", func() {
			cases := map[string]model.Role{
				"author":        model.RoleAuthor,
				"Reviewer":      model.RoleReviewer,
				"Reviewed-by":   model.RoleReviewer,
				"acker":         model.RoleAcker,
				"acked-by":      model.RoleAcker,
				" committer ":   model.RoleCommitter,
				"Signed-off-by": model.RoleCommitter,
			}

			convey.Convey("Then it normalizes to the canonical role", func() {
				for in, want := range cases {
					got, ok := model.ParseRole(in)
					convey.So(ok, convey.ShouldBeTrue)
					convey.So(got, convey.ShouldEqual, want)
				}
			})
		})

		convey.Convey("When the role is unknown", func() {
			_, ok := model.ParseRole("tested-by")
			convey.So(ok, convey.ShouldBeFalse)
		})

		convey.Convey("When classifying roles", func() {
			convey.So(model.RoleReviewer.IsReview(), convey.ShouldBeTrue)
			convey.So(model.RoleAcker.IsReview(), convey.ShouldBeTrue)
			convey.So(model.RoleAuthor.IsReview(), convey.ShouldBeFalse)
			convey.So(model.RoleCommitter.IsVolume(), convey.ShouldBeTrue)
			convey.So(model.RoleAcker.IsVolume(), convey.ShouldBeFalse)
		})
	})
}

func TestWindowJSON(t *testing.T) {
	convey.Convey("Given a window document", t, func() {
		doc := `{"producer":"mail","release":"v6.9","events":[
			{"event_id":"<m1@x>","raw_address":"Alice <a@corp.example>","role":"reviewer",
			 "subject_id":"<root@x>","timestamp":"2024-03-01T10:00:00Z",
			 "relay_override":"Alice <a@corp.example>"}]}`

		var w model.Window
		err := json.Unmarshal([]byte(doc), &w)

		convey.Convey("Then every field is decoded", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(w.Producer, convey.ShouldEqual, "mail")
			convey.So(w.Release, convey.ShouldEqual, "v6.9")
			convey.So(w.Events, convey.ShouldHaveLength, 1)
			e := w.Events[0]
			convey.So(e.Role, convey.ShouldEqual, model.RoleReviewer)
			convey.So(e.SubjectID, convey.ShouldEqual, "<root@x>")
			convey.So(e.RelayOverride, convey.ShouldNotBeEmpty)
			convey.So(e.Timestamp.Equal(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)), convey.ShouldBeTrue)
		})
	})
}

func TestAuthorship(t *testing.T) {
	convey.Convey("Given subject authorship", t, func() {
		convey.So(model.Authorship{}.Known(), convey.ShouldBeFalse)
		convey.So(model.Authorship{Identity: identity.Unmatched}.Known(), convey.ShouldBeTrue)
		convey.So(model.Authorship{Identity: identity.Identity{Email: "a@x"}}.Known(), convey.ShouldBeTrue)
	})
}
