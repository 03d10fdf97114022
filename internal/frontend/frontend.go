// Package frontend implements the Tribbler front-end operations (spec.md
// §4.F): sign_up, post, tribs, follow, unfollow, is_following, following,
// home and list_users, layered over a bin-scoped KV view per user.
// Grounded on original_source/lab/src/lab2/frontend.rs.
package frontend

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/neogan74/tribbler/internal/binview"
	"github.com/neogan74/tribbler/internal/metrics"
	"github.com/neogan74/tribbler/internal/replicated"
	"github.com/neogan74/tribbler/internal/trib"
)

const (
	mainBin = "MAIN"

	keySignedUp     = "signed_up"
	keyFollowLog    = "follow_log"
	keyFollowingNum = "following_num"
	keyTribs        = "tribs"
	keyUserNumber   = "user_number"
	keyGlobalUsers  = "global_users"

	followStartSentinel = "start"
)

// Frontend implements the Tribbler operations over a replicated KV.
type Frontend struct {
	kv *replicated.KV
}

// New builds a Frontend over kv.
func New(kv *replicated.KV) *Frontend {
	return &Frontend{kv: kv}
}

func (f *Frontend) bin(name string) *binview.View {
	return binview.New(f.kv, name)
}

func (f *Frontend) signedUp(ctx context.Context, v *binview.View) (bool, error) {
	_, ok, err := v.Get(ctx, keySignedUp)
	return ok, err
}

func (f *Frontend) requireSignedUp(ctx context.Context, v *binview.View, who string) error {
	ok, err := f.signedUp(ctx, v)
	if err != nil {
		return err
	}
	if !ok {
		return trib.New(trib.KindUserDoesNotExist, "user %q does not exist", who)
	}
	return nil
}

func observe(op string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.FrontendOpsTotal.WithLabelValues(op, status).Inc()
}

// SignUp creates user. Concurrent sign-ups on the same user may both
// succeed with no error, matching the original's stated race tolerance.
func (f *Frontend) SignUp(ctx context.Context, user string) (err error) {
	defer func() { observe("sign_up", err) }()

	if !trib.IsValidUsername(user) {
		return trib.New(trib.KindInvalidUsername, "invalid username %q", user)
	}

	ub := f.bin(user)
	ok, err := f.signedUp(ctx, ub)
	if err != nil {
		return err
	}
	if ok {
		return trib.New(trib.KindUsernameTaken, "user %q already signed up", user)
	}

	if err := ub.Set(ctx, keySignedUp, user); err != nil {
		return err
	}
	if err := ub.ListAppend(ctx, keyFollowLog, followStartSentinel); err != nil {
		return err
	}
	if err := ub.Set(ctx, keyFollowingNum, "0"); err != nil {
		return err
	}

	count, err := f.registerToMain(ctx, user)
	if err != nil {
		return err
	}
	// user_number is an advisory cache only; MAIN.global_users is
	// authoritative for list_users, so a failure here is not fatal.
	_ = ub.Set(ctx, keyUserNumber, strconv.Itoa(count))
	return nil
}

// registerToMain appends user to MAIN.global_users while fewer than
// MinListUser users have registered, per the original's register_to_main.
func (f *Frontend) registerToMain(ctx context.Context, user string) (int, error) {
	mb := f.bin(mainBin)
	users, err := mb.ListGet(ctx, keyGlobalUsers)
	if err != nil {
		return 0, err
	}
	if len(users) < trib.MinListUser {
		if err := mb.ListAppend(ctx, keyGlobalUsers, user); err != nil {
			return 0, err
		}
	}
	return len(users) + 1, nil
}

// ListUsers returns up to MinListUser early registrants, sorted and
// deduplicated (concurrent sign-ups may have appended the same user to
// MAIN.global_users more than once; contains_in_vec in the original
// guards a related case, this guards the analogous one here).
func (f *Frontend) ListUsers(ctx context.Context) (users []string, err error) {
	defer func() { observe("list_users", err) }()

	mb := f.bin(mainBin)
	raw, err := mb.ListGet(ctx, keyGlobalUsers)
	if err != nil {
		return nil, err
	}

	sort.Strings(raw)
	deduped := raw[:0:0]
	for i, u := range raw {
		if i == 0 || u != raw[i-1] {
			deduped = append(deduped, u)
		}
	}
	if len(deduped) > trib.MinListUser {
		deduped = deduped[:trib.MinListUser]
	}
	return deduped, nil
}

// Post appends a trib to user's timeline.
func (f *Frontend) Post(ctx context.Context, who, message string, clockHint uint64) (err error) {
	defer func() { observe("post", err) }()

	if len(message) > trib.MaxTribLen {
		return trib.New(trib.KindTribTooLong, "message exceeds %d bytes", trib.MaxTribLen)
	}

	ub := f.bin(who)
	if err := f.requireSignedUp(ctx, ub, who); err != nil {
		return err
	}

	clock, err := ub.Clock(ctx, clockHint)
	if err != nil {
		return err
	}

	t := trib.Trib{User: who, Message: message, Time: time.Now().Unix(), Clock: clock}
	raw, err := json.Marshal(t)
	if err != nil {
		return trib.Wrap(trib.KindUnknown, err)
	}
	return ub.ListAppend(ctx, keyTribs, string(raw))
}

type ribEntry struct {
	raw string
	t   trib.Trib
}

func sortRibEntries(entries []ribEntry) {
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i].t, entries[j].t
		if a.Clock != b.Clock {
			return a.Clock < b.Clock
		}
		if a.Time != b.Time {
			return a.Time < b.Time
		}
		if a.User != b.User {
			return a.User < b.User
		}
		return a.Message < b.Message
	})
}

// tribEntries reads and sorts user's raw tribs, pairing each with its
// exact stored JSON so stale entries can be removed by exact match.
func (f *Frontend) tribEntries(ctx context.Context, user string) ([]ribEntry, error) {
	ub := f.bin(user)
	if err := f.requireSignedUp(ctx, ub, user); err != nil {
		return nil, err
	}

	raw, err := ub.ListGet(ctx, keyTribs)
	if err != nil {
		return nil, err
	}

	entries := make([]ribEntry, 0, len(raw))
	for _, r := range raw {
		var t trib.Trib
		if err := json.Unmarshal([]byte(r), &t); err != nil {
			return nil, trib.Wrap(trib.KindUnknown, err)
		}
		entries = append(entries, ribEntry{raw: r, t: t})
	}
	sortRibEntries(entries)
	return entries, nil
}

// Tribs returns the last MaxTribFetch tribs user has posted, sorted by
// (clock, time, user, message), garbage-collecting anything older.
func (f *Frontend) Tribs(ctx context.Context, user string) (tribs []trib.Trib, err error) {
	defer func() { observe("tribs", err) }()

	entries, err := f.tribEntries(ctx, user)
	if err != nil {
		return nil, err
	}

	if len(entries) <= trib.MaxTribFetch {
		out := make([]trib.Trib, len(entries))
		for i, e := range entries {
			out[i] = e.t
		}
		return out, nil
	}

	cut := len(entries) - trib.MaxTribFetch
	stale, kept := entries[:cut], entries[cut:]

	ub := f.bin(user)
	for _, e := range stale {
		if _, rmErr := ub.ListRemove(ctx, keyTribs, e.raw); rmErr == nil {
			metrics.TribsGCedTotal.Inc()
		}
	}

	out := make([]trib.Trib, len(kept))
	for i, e := range kept {
		out[i] = e.t
	}
	return out, nil
}

// followState replays log, recording each "<clock>::follow::<whom>" as
// true and each "<clock>::unfollow::<whom>" as false; final value wins.
func followState(log []string, whom string) bool {
	state := false
	for _, record := range log {
		parts := strings.SplitN(record, "::", 3)
		if len(parts) != 3 || parts[2] != whom {
			continue
		}
		switch parts[1] {
		case "follow":
			state = true
		case "unfollow":
			state = false
		}
	}
	return state
}

// followingSet replays log, accumulating the set of currently-followed
// users.
func followingSet(log []string) map[string]bool {
	set := make(map[string]bool)
	for _, record := range log {
		parts := strings.SplitN(record, "::", 3)
		if len(parts) != 3 {
			continue
		}
		switch parts[1] {
		case "follow":
			set[parts[2]] = true
		case "unfollow":
			delete(set, parts[2])
		}
	}
	return set
}

// Follow makes who follow whom.
func (f *Frontend) Follow(ctx context.Context, who, whom string) (err error) {
	defer func() { observe("follow", err) }()
	return f.changeFollow(ctx, who, whom, "follow")
}

// Unfollow makes who stop following whom.
func (f *Frontend) Unfollow(ctx context.Context, who, whom string) (err error) {
	defer func() { observe("unfollow", err) }()
	return f.changeFollow(ctx, who, whom, "unfollow")
}

func (f *Frontend) changeFollow(ctx context.Context, who, whom, action string) error {
	if who == whom {
		return trib.New(trib.KindWhoWhom, "%q cannot %s itself", who, action)
	}

	wb := f.bin(who)
	if err := f.requireSignedUp(ctx, wb, who); err != nil {
		return err
	}
	mb := f.bin(whom)
	if err := f.requireSignedUp(ctx, mb, whom); err != nil {
		return err
	}

	clock, err := wb.Clock(ctx, 0)
	if err != nil {
		return err
	}
	record := fmt.Sprintf("%d::%s::%s", clock, action, whom)

	if err := wb.ListAppend(ctx, keyFollowLog, record); err != nil {
		return err
	}

	log, err := wb.ListGet(ctx, keyFollowLog)
	if err != nil {
		return err
	}
	// state prior to this append is the replay of every entry but the one
	// just added, which is always last since appends are ordered.
	prior := log
	if n := len(log); n > 0 && log[n-1] == record {
		prior = log[:n-1]
	}
	wasFollowing := followState(prior, whom)

	if action == "follow" {
		if wasFollowing {
			return trib.New(trib.KindAlreadyFollowing, "%q already follows %q", who, whom)
		}
		return f.incrementFollowingNum(ctx, wb, who, whom, record)
	}

	if !wasFollowing {
		return trib.New(trib.KindNotFollowing, "%q does not follow %q", who, whom)
	}
	return f.decrementFollowingNum(ctx, wb)
}

func (f *Frontend) incrementFollowingNum(ctx context.Context, wb *binview.View, who, whom, record string) error {
	n, err := f.followingNum(ctx, wb)
	if err != nil {
		return err
	}
	n++
	if n > trib.MaxFollowing {
		_, _ = wb.ListRemove(ctx, keyFollowLog, record)
		return trib.New(trib.KindFollowingTooMany, "%q would follow more than %d users", who, trib.MaxFollowing)
	}
	return wb.Set(ctx, keyFollowingNum, strconv.Itoa(n))
}

func (f *Frontend) decrementFollowingNum(ctx context.Context, wb *binview.View) error {
	n, err := f.followingNum(ctx, wb)
	if err != nil {
		return err
	}
	n--
	if n < 0 {
		n = 0
	}
	return wb.Set(ctx, keyFollowingNum, strconv.Itoa(n))
}

func (f *Frontend) followingNum(ctx context.Context, wb *binview.View) (int, error) {
	s, ok, err := wb.Get(ctx, keyFollowingNum)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, trib.New(trib.KindUnknown, "following_num not initialised")
	}
	n, convErr := strconv.Atoi(s)
	if convErr != nil {
		return 0, trib.Wrap(trib.KindUnknown, convErr)
	}
	return n, nil
}

// IsFollowing reports whether who currently follows whom.
func (f *Frontend) IsFollowing(ctx context.Context, who, whom string) (following bool, err error) {
	defer func() { observe("is_following", err) }()

	if who == whom {
		return false, trib.New(trib.KindWhoWhom, "%q cannot follow itself", who)
	}
	wb := f.bin(who)
	if err := f.requireSignedUp(ctx, wb, who); err != nil {
		return false, err
	}
	mb := f.bin(whom)
	if err := f.requireSignedUp(ctx, mb, whom); err != nil {
		return false, err
	}

	log, err := wb.ListGet(ctx, keyFollowLog)
	if err != nil {
		return false, err
	}
	return followState(log, whom), nil
}

// Following returns the set of users who currently follows, sorted.
func (f *Frontend) Following(ctx context.Context, who string) (following []string, err error) {
	defer func() { observe("following", err) }()

	wb := f.bin(who)
	if err := f.requireSignedUp(ctx, wb, who); err != nil {
		return nil, err
	}
	log, err := wb.ListGet(ctx, keyFollowLog)
	if err != nil {
		return nil, err
	}
	set := followingSet(log)
	out := make([]string, 0, len(set))
	for whom := range set {
		out = append(out, whom)
	}
	sort.Strings(out)
	return out, nil
}

// Home concatenates user's own tribs with those of everyone user follows.
func (f *Frontend) Home(ctx context.Context, user string) (home []trib.Trib, err error) {
	defer func() { observe("home", err) }()

	ub := f.bin(user)
	if err := f.requireSignedUp(ctx, ub, user); err != nil {
		return nil, err
	}

	following, err := f.Following(ctx, user)
	if err != nil {
		return nil, err
	}

	entries, err := f.tribEntries(ctx, user)
	if err != nil {
		return nil, err
	}
	for _, whom := range following {
		theirs, err := f.tribEntries(ctx, whom)
		if err != nil {
			return nil, err
		}
		entries = append(entries, theirs...)
	}
	sortRibEntries(entries)

	if len(entries) > trib.MaxTribFetch {
		entries = entries[len(entries)-trib.MaxTribFetch:]
	}
	out := make([]trib.Trib, len(entries))
	for i, e := range entries {
		out[i] = e.t
	}
	return out, nil
}
