package pipeline

import (
	"testing"
	"time"
)

func testEnv() Env {
	return Env{
		"users": {
			{"id": "u1", "displayName": "Ada", "handle": "ada", "avatarUrl": "a.png", "passwordHash": "secret"},
			{"id": "u2", "displayName": "Ben", "handle": "ben", "avatarUrl": "b.png", "passwordHash": "secret"},
		},
		"videos": {
			{"id": "v1", "ownerId": "u1", "title": "First", "views": int64(10)},
			{"id": "v2", "ownerId": "u1", "title": "Second", "views": int64(25)},
			{"id": "v3", "ownerId": "u2", "title": "Third", "views": int64(5)},
		},
		"likes": {
			{"id": "l1", "likedById": "u2", "videoId": "v1"},
			{"id": "l2", "likedById": "u2", "tweetId": "t1"},
		},
	}
}

func TestMatchEq(t *testing.T) {
	docs, err := New("videos", MatchEq("ownerId", "u1")).Run(testEnv())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 docs, got %d", len(docs))
	}
}

func TestLookupJoinsAndShapes(t *testing.T) {
	docs, err := New("videos",
		MatchEq("id", "v1"),
		Lookup{
			From:         "users",
			LocalField:   "ownerId",
			ForeignField: "id",
			As:           "owner",
			Pipeline: []Stage{
				Project{Fields: []string{"id", "displayName", "handle", "avatarUrl"}},
			},
		},
		First{Field: "owner"},
	).Run(testEnv())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected 1 doc, got %d", len(docs))
	}
	owner, ok := docs[0]["owner"].(Doc)
	if !ok {
		t.Fatalf("expected owner doc, got %T", docs[0]["owner"])
	}
	if owner["displayName"] != "Ada" {
		t.Fatalf("expected owner Ada, got %v", owner["displayName"])
	}
	if _, leaked := owner["passwordHash"]; leaked {
		t.Fatalf("projection leaked passwordHash")
	}
}

func TestLookupOrderedSliceLocalFieldSkipsDangling(t *testing.T) {
	env := testEnv()
	env["history"] = Collection{
		{"id": "u1", "watchHistory": []string{"v3", "missing", "v1"}},
	}
	docs, err := New("history",
		Lookup{From: "videos", LocalField: "watchHistory", ForeignField: "id", As: "watched"},
	).Run(env)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	watched, ok := docs[0]["watched"].([]Doc)
	if !ok {
		t.Fatalf("expected joined slice, got %T", docs[0]["watched"])
	}
	if len(watched) != 2 {
		t.Fatalf("expected 2 resolved videos, got %d", len(watched))
	}
	if watched[0]["id"] != "v3" || watched[1]["id"] != "v1" {
		t.Fatalf("join did not preserve reference order: %v", watched)
	}
}

func TestLookupEmptyMatchYieldsEmptySlice(t *testing.T) {
	docs, err := New("videos",
		MatchEq("id", "v3"),
		Lookup{From: "likes", LocalField: "id", ForeignField: "videoId", As: "likes"},
	).Run(testEnv())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	likes, ok := docs[0]["likes"].([]Doc)
	if !ok || len(likes) != 0 {
		t.Fatalf("expected empty slice for unmatched lookup, got %v", docs[0]["likes"])
	}
}

func TestGroupAccumulators(t *testing.T) {
	docs, err := New("videos",
		MatchEq("ownerId", "u1"),
		Group{Accums: []Accum{
			{As: "count", Op: AccumCount},
			{As: "totalViews", Op: AccumSum, Field: "views"},
		}},
	).Run(testEnv())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected 1 grouped doc, got %d", len(docs))
	}
	if docs[0]["count"] != int64(2) || docs[0]["totalViews"] != int64(35) {
		t.Fatalf("unexpected accumulators: %v", docs[0])
	}
}

func TestGroupEmptyInputProducesNoRows(t *testing.T) {
	docs, err := New("videos",
		MatchEq("ownerId", "nobody"),
		Group{Accums: []Accum{{As: "count", Op: AccumCount}}},
	).Run(testEnv())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(docs) != 0 {
		t.Fatalf("expected no rows for empty group, got %d", len(docs))
	}
}

func TestGroupCondCount(t *testing.T) {
	docs, err := New("likes",
		Group{Accums: []Accum{
			{As: "videoLikes", Op: AccumCondCount, Cond: func(d Doc) bool { return d["videoId"] != nil }},
			{As: "tweetLikes", Op: AccumCondCount, Cond: func(d Doc) bool { return d["tweetId"] != nil }},
		}},
	).Run(testEnv())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if docs[0]["videoLikes"] != int64(1) || docs[0]["tweetLikes"] != int64(1) {
		t.Fatalf("unexpected conditional counts: %v", docs[0])
	}
}

func TestSortSkipLimit(t *testing.T) {
	docs, err := New("videos",
		Sort{Field: "views", Desc: true},
		Skip{N: 1},
		Limit{N: 1},
	).Run(testEnv())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(docs) != 1 || docs[0]["id"] != "v1" {
		t.Fatalf("expected middle video v1, got %v", docs)
	}
}

func TestSortByTime(t *testing.T) {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	env := Env{"items": {
		{"id": "b", "createdAt": base.Add(time.Hour)},
		{"id": "a", "createdAt": base},
		{"id": "c", "createdAt": base.Add(2 * time.Hour)},
	}}
	docs, err := New("items", Sort{Field: "createdAt"}).Run(env)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if docs[0]["id"] != "a" || docs[2]["id"] != "c" {
		t.Fatalf("time sort out of order: %v", docs)
	}
}

func TestCount(t *testing.T) {
	docs, err := New("videos", Count{As: "videos"}).Run(testEnv())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(docs) != 1 || docs[0]["videos"] != int64(3) {
		t.Fatalf("unexpected count result: %v", docs)
	}
}

func TestRunUnknownCollection(t *testing.T) {
	if _, err := New("nope").Run(testEnv()); err == nil {
		t.Fatalf("expected error for unknown collection")
	}
}
