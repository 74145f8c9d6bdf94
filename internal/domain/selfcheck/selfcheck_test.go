package selfcheck

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/revstat/internal/domain/identity"
	"github.com/okian/revstat/internal/domain/model"
	"github.com/okian/revstat/internal/domain/resolver"
	"github.com/okian/revstat/pkg/logger"
)

func newResolver(t *testing.T) *resolver.Resolver {
	t.Helper()
	if err := logger.Init(logger.WithOutput(io.Discard)); err != nil {
		t.Fatalf("init logger: %v", err)
	}
	m, err := identity.New(identity.Document{
		MailMap: [][]string{{"ann@home.example", "Ann <ann@corp.example>"}},
		CorpMap: [][]string{{"corp.example", "Corp"}},
		Relays:  []string{"list@relay.example"},
	})
	if err != nil {
		t.Fatalf("identity map: %v", err)
	}
	return resolver.New(m, resolver.WithMetrics(false))
}

func TestRun(t *testing.T) {
	r := newResolver(t)
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	window := model.Window{Producer: "mail", Release: "v6.9", Events: []model.Event{
		{RawAddress: "Ann <ann@corp.example>", Role: model.RoleAuthor, SubjectID: "S1", Timestamp: ts},
		{RawAddress: "ann@home.example", Role: model.RoleReviewer, SubjectID: "S1", Timestamp: ts},
		{RawAddress: "Ann <ann@corp.example>", Role: model.RoleAcker, SubjectID: "S1", Timestamp: ts},
		{RawAddress: "list@relay.example", Role: model.RoleReviewer, SubjectID: "S1", Timestamp: ts},
		{RawAddress: "Joe Dev <joe@gmail.example>", Role: model.RoleReviewer, SubjectID: "S2", Timestamp: ts},
		{RawAddress: "Joe Dev <joe@work.example>", Role: model.RoleCommitter, SubjectID: "S2", Timestamp: ts},
		{RawAddress: "not-an-address", Role: model.RoleReviewer, SubjectID: "S2", Timestamp: ts},
		{RawAddress: "anon@corp.example", Role: model.RoleReviewer, SubjectID: "S2", Timestamp: ts},
		{RawAddress: "late@corp.example", Role: model.RoleReviewer, SubjectID: "S3", Timestamp: ts},
	}}
	before := append([]model.Event(nil), window.Events...)

	Convey("Given a window with mapping gaps", t, func() {
		rep, err := Run(context.Background(), r, window, WithSampleSize(2), WithSelfReviewThreshold(1))
		So(err, ShouldBeNil)

		Convey("Then only the first subjects are sampled", func() {
			So(rep.Subjects, ShouldEqual, 3)
			So(rep.SampledSubjects, ShouldEqual, 2)
			So(rep.Events, ShouldEqual, 8)
		})

		Convey("Then each gap is reported", func() {
			So(rep.Unmatched, ShouldResemble, []Finding{{Subject: "not-an-address", Count: 1}})
			So(rep.SelfReviewers, ShouldResemble, []Finding{{Subject: "ann@corp.example", Count: 2}})
			So(rep.UnremappedRelays, ShouldResemble, []Finding{{Subject: "list@relay.example", Count: 1}})
			So(rep.UnknownOrgs, ShouldContain, Finding{Subject: "joe@gmail.example", Count: 1})
			So(rep.NoName, ShouldContain, Finding{Subject: "anon@corp.example", Count: 1})
			So(rep.Suggestions, ShouldResemble, []Suggestion{{
				Name:      "Joe Dev",
				Addresses: []string{"joe@gmail.example", "joe@work.example"},
			}})
			So(rep.Clean(), ShouldBeFalse)
		})

		Convey("Then the aliases and rules that matched are listed", func() {
			So(rep.AliasesUsed, ShouldResemble, []RuleUse{{From: "ann@home.example", To: "Ann <ann@corp.example>", Count: 1}})
			So(rep.RulesUsed, ShouldResemble, []RuleUse{{From: "corp.example", To: "Corp", Count: 3}})
			So(rep.CorpSuggestions, ShouldBeEmpty)
		})

		Convey("Then the inputs are untouched", func() {
			So(window.Events, ShouldResemble, before)
		})

		Convey("Then the report renders as tables", func() {
			color.NoColor = true
			var buf bytes.Buffer
			So(rep.Render(&buf), ShouldBeNil)
			out := buf.String()
			So(out, ShouldContainSubstring, "Self-check mail/v6.9")
			So(out, ShouldContainSubstring, "not-an-address")
			So(out, ShouldContainSubstring, "Possible mailmap entries")
			So(out, ShouldContainSubstring, "joe@work.example")
			So(out, ShouldContainSubstring, "Mailmap aliases used")
			So(out, ShouldContainSubstring, "Corpmap rules used")
		})
	})

	Convey("Given a gitdm dump that knows an unattributed address", t, func() {
		g := Gitdm{"joe@gmail.example": {Organization: "JoeCorp", Name: "Joe Dev"}}
		rep, err := Run(context.Background(), r, window, WithSampleSize(2), WithGitdm(g))
		So(err, ShouldBeNil)

		Convey("Then the address is proposed as a corpmap entry", func() {
			So(rep.CorpSuggestions, ShouldResemble, []CorpSuggestion{{Address: "joe@gmail.example", Organization: "JoeCorp", Count: 1}})
			color.NoColor = true
			var buf bytes.Buffer
			So(rep.Render(&buf), ShouldBeNil)
			So(buf.String(), ShouldContainSubstring, "Corpmap candidates from gitdm")
			So(buf.String(), ShouldContainSubstring, "JoeCorp")
		})
	})

	Convey("Given a threshold above every self-review count", t, func() {
		rep, err := Run(context.Background(), r, window, WithSelfReviewThreshold(5))
		So(err, ShouldBeNil)
		So(rep.SelfReviewers, ShouldBeEmpty)
		So(rep.SampledSubjects, ShouldEqual, 3)
	})

	Convey("Given a clean window", t, func() {
		clean := model.Window{Producer: "git", Release: "v1", Events: []model.Event{
			{RawAddress: "Ann <ann@corp.example>", Role: model.RoleAuthor, SubjectID: "c1", Timestamp: ts},
			{RawAddress: "Bo <bo@corp.example>", Role: model.RoleReviewer, SubjectID: "c1", Timestamp: ts},
			{RawAddress: "Bo <bo@corp.example>", Role: model.RoleCommitter, SubjectID: "c1", Timestamp: ts},
		}}
		rep, err := Run(context.Background(), r, clean)
		So(err, ShouldBeNil)

		Convey("Then nothing is reported", func() {
			So(rep.Clean(), ShouldBeTrue)
			So(rep.Summary.ReviewCoverage, ShouldEqual, 1)
			var buf bytes.Buffer
			So(rep.Render(&buf), ShouldBeNil)
			So(buf.String(), ShouldContainSubstring, "No mapping gaps found.")
			So(buf.String(), ShouldContainSubstring, "Corpmap rules used")
		})
	})
}

func TestParseGitdm(t *testing.T) {
	Convey("Given a gitdm developer dump", t, func() {
		dump := strings.Join([]string{
			"JoeCorp\tjoe!gmail.example\tJoe Dev\t3",
			"(Unknown)\tnobody!nowhere.example\tNobody\t1",
			"Independent\tfree!lance.example\tFree\t2",
			"Vendor\tBo!Vendor.Example",
			"Broken\tno-at-sign\tX\t1",
			"short",
		}, "\n")

		g, err := ParseGitdm(strings.NewReader(dump))
		So(err, ShouldBeNil)

		Convey("Then real organizations are kept by lowercased address", func() {
			So(g, ShouldHaveLength, 2)
			So(g["joe@gmail.example"], ShouldResemble, GitdmEntry{Organization: "JoeCorp", Name: "Joe Dev"})
			So(g["bo@vendor.example"], ShouldResemble, GitdmEntry{Organization: "Vendor"})
		})
	})

	Convey("Given a missing gitdm file", t, func() {
		_, err := LoadGitdm(filepath.Join(t.TempDir(), "missing.tsv"))
		So(errors.Is(err, ErrGitdm), ShouldBeTrue)
	})
}
