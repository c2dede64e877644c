package handlers

import (
	"errors"

	"finitefield.org/fansite/internal/content"
	"finitefield.org/fansite/internal/fanmail"
	"finitefield.org/fansite/internal/format"
)

// ToastView is a dismissible notification.
type ToastView struct {
	Title   string
	Message string
	Variant string // "destructive" or ""
	Dismiss string
}

// ConnectState is the form state carried into a render.
type ConnectState struct {
	State  fanmail.State
	Form   fanmail.Form
	Errors fanmail.FieldErrors
	Toast  *ToastView
}

// FieldView is one labelled form input.
type FieldView struct {
	Name        string
	Label       string
	Placeholder string
	Value       string
	Error       string
}

type PostView struct {
	content.SocialPost
	Initial  string
	Likes    string
	Retweets string
}

type ConnectView struct {
	Copy      content.ConnectCopy
	Links     content.SocialLinks
	FeedTitle string
	Feed      []PostView
	Submitted bool
	Name      FieldView
	Email     FieldView
	Message   FieldView
	Sending   string
	Lang      string
	CSRFToken string
}

func (s *Site) BuildConnect(lang string, st ConnectState) ConnectView {
	cp := s.Content.Sections(lang).Connect
	feedTitle := cp.FeedTitle
	if feedTitle == "" {
		feedTitle = s.T(lang, "connect.feed.title")
	}
	v := ConnectView{
		Copy:      cp,
		Links:     s.Content.SocialLinks(),
		FeedTitle: feedTitle,
		Feed:      s.BuildFeed(lang),
		Submitted: st.State == fanmail.StateSubmitted,
		Sending:   s.T(lang, "connect.sending"),
		Lang:      lang,
	}
	field := func(name, label, placeholder, value string) FieldView {
		fv := FieldView{Name: name, Label: label, Placeholder: placeholder, Value: value}
		if key, ok := st.Errors[name]; ok {
			fv.Error = s.T(lang, key)
		}
		return fv
	}
	v.Name = field(fanmail.FieldName, cp.Name, cp.NamePlaceholder, st.Form.Name)
	v.Email = field(fanmail.FieldEmail, cp.Email, cp.EmailPlaceholder, st.Form.Email)
	v.Message = field(fanmail.FieldMessage, cp.Message, cp.MessagePlaceholder, st.Form.Message)
	return v
}

// BuildFeed formats the social posts with compact counts.
func (s *Site) BuildFeed(lang string) []PostView {
	posts := s.Content.SocialFeed(lang)
	out := make([]PostView, 0, len(posts))
	for _, p := range posts {
		initial := ""
		if r := []rune(p.Author); len(r) > 0 {
			initial = string(r[0])
		}
		out = append(out, PostView{
			SocialPost: p,
			Initial:    initial,
			Likes:      format.Compact(p.Likes),
			Retweets:   format.Compact(p.Retweets),
		})
	}
	return out
}

// SubmissionToast maps a failed submission to its notification. It returns nil for
// success and for field errors, which are shown inline.
func (s *Site) SubmissionToast(lang string, err error) *ToastView {
	if err == nil {
		return nil
	}
	if _, ok := fanmail.AsValidation(err); ok {
		return nil
	}
	t := &ToastView{Variant: "destructive", Dismiss: s.T(lang, "toast.dismiss")}
	var outage interface{ IsUnavailable() bool }
	switch {
	case errors.Is(err, fanmail.ErrNoDatabase), errors.Is(err, fanmail.ErrNoSession),
		errors.As(err, &outage) && outage.IsUnavailable():
		t.Title = s.T(lang, "toast.error.title")
		t.Message = s.T(lang, "toast.error.no_database")
	case errors.Is(err, fanmail.ErrRateLimited):
		t.Title = s.T(lang, "toast.failed.title")
		t.Message = s.T(lang, "toast.rate_limited.message")
	default:
		t.Title = s.T(lang, "toast.failed.title")
		t.Message = s.T(lang, "toast.failed.message")
	}
	return t
}
