package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"fetlife-adapter/internal/scrapers/fetlife"

	"github.com/go-chi/chi/v5"
)

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// readCredentials accepts a JSON body or a form, the way the bot and curl users post.
func readCredentials(r *http.Request) (credentials, error) {
	var creds credentials
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&creds)
		if err != nil && !errors.Is(err, io.EOF) {
			return creds, badRequest{message: "invalid json body"}
		}
		return creds, nil
	}
	if err := r.ParseForm(); err != nil {
		return creds, badRequest{message: "invalid form body"}
	}
	creds.Username = r.PostForm.Get("username")
	creds.Password = r.PostForm.Get("password")
	return creds, nil
}

type loginResponse struct {
	Status   string `json:"status"`
	UserId   int64  `json:"user_id"`
	Nickname string `json:"nickname"`
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	accountId, err := s.accountId(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	creds, err := readCredentials(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if creds.Username == "" {
		creds.Username = s.opts.DefaultUsername
	}
	if creds.Password == "" {
		creds.Password = s.opts.DefaultPassword
	}
	if creds.Username == "" || creds.Password == "" {
		s.fail(w, r, badRequest{message: "missing credentials"})
		return
	}
	transport, err := s.transports()
	if err != nil {
		s.fail(w, r, err)
		return
	}

	var account *fetlife.Account
	err = s.store.Cycle(r.Context(), accountId, func(a *fetlife.Account) error {
		account = a
		return fetlife.NewUser(a, transport, s.tel).LogIn(r.Context(), creds.Username, creds.Password)
	})
	var authErr *fetlife.AuthenticationError
	switch {
	case errors.As(err, &authErr):
		s.metrics.RecordLogin(false)
	case err == nil:
		s.metrics.RecordLogin(true)
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Status:   "ok",
		UserId:   account.UserId,
		Nickname: account.Nickname,
	})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	accountId, err := s.accountId(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	deleted, err := s.store.Delete(r.Context(), accountId)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "deleted": deleted})
}

func pathId(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest{message: "invalid id"}
	}
	return id, nil
}

// queryPages reads ?pages=, absent means one page.
func queryPages(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("pages")
	if raw == "" {
		return 1, nil
	}
	pages, err := strconv.Atoi(raw)
	if err != nil || pages < 0 || pages > 50 {
		return 0, badRequest{message: "invalid pages"}
	}
	return pages, nil
}

// who reads {id} of a /users route: "me", a numeric id or a nickname.
func who(r *http.Request) fetlife.Who {
	raw := chi.URLParam(r, "id")
	if strings.EqualFold(raw, "me") {
		return fetlife.Me()
	}
	return fetlife.ByString(raw)
}

type eventJSON struct {
	Id    int64  `json:"id"`
	Title string `json:"title"`
	Link  string `json:"link"`
	Time  string `json:"time"`
	Venue string `json:"venue"`
}

type attendeeJSON struct {
	Id       int64  `json:"id"`
	Nickname string `json:"nickname"`
	Status   string `json:"status"`
	Comment  string `json:"comment"`
}

type profileJSON struct {
	Id       int64  `json:"id"`
	Nickname string `json:"nickname"`
	Link     string `json:"link"`
}

type writingJSON struct {
	Id        int64  `json:"id"`
	Title     string `json:"title"`
	Link      string `json:"link"`
	Published string `json:"published"`
}

type postJSON struct {
	Id        int64  `json:"id"`
	Title     string `json:"title"`
	Author    string `json:"author"`
	Link      string `json:"link"`
	Published string `json:"published"`
}

type messageJSON struct {
	Id     int64  `json:"id"`
	Sender string `json:"sender"`
	Text   string `json:"text"`
	Sent   string `json:"sent"`
	Link   string `json:"link"`
}

func (s *Server) eventJSON(e fetlife.Event) eventJSON {
	return eventJSON{Id: e.Id, Title: e.Title, Link: s.link(e.Link), Time: e.StartTime, Venue: e.Venue}
}

func (s *Server) events(w http.ResponseWriter, r *http.Request) {
	location := strings.TrimSpace(r.URL.Query().Get("location"))
	if location == "" {
		s.fail(w, r, badRequest{message: "missing location"})
		return
	}
	pages, err := queryPages(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.withUser(w, r, func(ctx context.Context, user *fetlife.User) (any, error) {
		events, err := user.GetUpcomingEventsInLocation(ctx, location, pages)
		if err != nil {
			return nil, err
		}
		out := make([]eventJSON, 0, len(events))
		for _, e := range events {
			out = append(out, s.eventJSON(e))
		}
		return out, nil
	})
}

func (s *Server) event(w http.ResponseWriter, r *http.Request) {
	id, err := pathId(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.withUser(w, r, func(ctx context.Context, user *fetlife.User) (any, error) {
		event, err := user.GetEventById(ctx, id)
		if err != nil {
			return nil, err
		}
		return s.eventJSON(event), nil
	})
}

func (s *Server) attendees(w http.ResponseWriter, r *http.Request) {
	id, err := pathId(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	pages, err := queryPages(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.withUser(w, r, func(ctx context.Context, user *fetlife.User) (any, error) {
		event := fetlife.Event{Id: id}
		if err := user.Populate(ctx, &event, pages); err != nil {
			return nil, err
		}
		out := []attendeeJSON{}
		for _, status := range fetlife.RSVPStatuses {
			for _, a := range event.Attendees.Of(status) {
				out = append(out, attendeeJSON{
					Id:       a.Profile.Id,
					Nickname: a.Profile.Nickname,
					Status:   status.String(),
					Comment:  a.Comment,
				})
			}
		}
		return out, nil
	})
}

func (s *Server) profile(w http.ResponseWriter, r *http.Request) {
	target := who(r)
	s.withUser(w, r, func(ctx context.Context, user *fetlife.User) (any, error) {
		profile, err := user.GetUserProfile(ctx, target)
		if err != nil {
			return nil, err
		}
		return profileJSON{
			Id:       profile.Id,
			Nickname: profile.Nickname,
			Link:     s.link("/users/" + strconv.FormatInt(profile.Id, 10)),
		}, nil
	})
}

func (s *Server) writings(w http.ResponseWriter, r *http.Request) {
	target := who(r)
	s.withUser(w, r, func(ctx context.Context, user *fetlife.User) (any, error) {
		writings, err := user.GetWritingsOf(ctx, target)
		if err != nil {
			return nil, err
		}
		out := make([]writingJSON, 0, len(writings))
		for _, wr := range writings {
			out = append(out, writingJSON{Id: wr.Id, Title: wr.Title, Link: s.link(wr.Link), Published: wr.Published})
		}
		return out, nil
	})
}

func (s *Server) groupPosts(w http.ResponseWriter, r *http.Request) {
	id, err := pathId(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.withUser(w, r, func(ctx context.Context, user *fetlife.User) (any, error) {
		posts, err := user.GetGroupPosts(ctx, id)
		if err != nil {
			return nil, err
		}
		out := make([]postJSON, 0, len(posts))
		for _, p := range posts {
			out = append(out, postJSON{Id: p.Id, Title: p.Title, Author: p.Author, Link: s.link(p.Link), Published: p.Published})
		}
		return out, nil
	})
}

func (s *Server) messages(w http.ResponseWriter, r *http.Request) {
	s.withUser(w, r, func(ctx context.Context, user *fetlife.User) (any, error) {
		messages, err := user.GetConversationMessages(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]messageJSON, 0, len(messages))
		for _, m := range messages {
			out = append(out, messageJSON{Id: m.Id, Sender: m.Sender, Text: m.Text, Sent: m.Sent, Link: s.link(m.Link)})
		}
		return out, nil
	})
}
