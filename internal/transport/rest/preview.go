package rest

import (
	"html/template"
	"net/http"
	"regexp"
	"strings"

	"github.com/baechuer/summons/internal/pkg/logger"
	"github.com/baechuer/summons/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

var crawlerRe = regexp.MustCompile(`(?i)facebookexternalhit|twitterbot|linkedinbot|slackbot|whatsapp|telegram|discordbot`)

const (
	previewTitle       = "You're Invited!"
	previewDescription = "Join us for an amazing event"
	previewLogo        = "/Summons-logo.png"
)

var previewTmpl = template.Must(template.New("preview").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<meta name="description" content="{{.Description}}">
<meta property="og:type" content="website">
<meta property="og:url" content="{{.URL}}">
<meta property="og:title" content="{{.Title}}">
<meta property="og:description" content="{{.Description}}">
<meta property="og:image" content="{{.Image}}">
<meta name="twitter:card" content="summary_large_image">
<meta name="twitter:title" content="{{.Title}}">
<meta name="twitter:description" content="{{.Description}}">
<meta name="twitter:image" content="{{.Image}}">
</head>
<body><a href="{{.URL}}">{{.Title}}</a></body>
</html>
`))

type previewData struct {
	Title       string
	Description string
	Image       string
	URL         string
}

// Preview serves link-preview meta tags to chat and social crawlers and
// redirects everyone else to the invite page on the site.
type Preview struct {
	svc     *service.RSVPService
	siteURL string
}

func NewPreview(svc *service.RSVPService, siteURL string) *Preview {
	return &Preview{svc: svc, siteURL: strings.TrimRight(siteURL, "/")}
}

func IsCrawler(userAgent string) bool {
	return userAgent != "" && crawlerRe.MatchString(userAgent)
}

func (p *Preview) Invite(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "eventID")
	target := p.siteURL + "/invite/" + raw

	if !IsCrawler(r.UserAgent()) {
		http.Redirect(w, r, target, http.StatusFound)
		return
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		http.Redirect(w, r, target, http.StatusFound)
		return
	}
	ev, err := p.svc.GetEvent(r.Context(), id)
	if err != nil {
		http.Redirect(w, r, target, http.StatusFound)
		return
	}

	data := previewData{
		Title:       firstNonBlank(ev.Title, previewTitle),
		Description: firstNonBlank(ev.Description, previewDescription),
		Image:       firstNonBlank(ev.ImageURL, p.siteURL+previewLogo),
		URL:         target,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(http.StatusOK)
	if err := previewTmpl.Execute(w, data); err != nil {
		logger.WithCtx(r.Context()).Warn().Err(err).Str("event_id", raw).Msg("preview render failed")
	}
}

func firstNonBlank(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
