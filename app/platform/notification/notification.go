package notification

import (
	"embed"
	"fmt"
	"html"
	"strings"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"ams/app/database"
	"ams/app/mail"
)

//go:embed locales/*.yaml
var locales embed.FS

type Event string

const (
	AccountCreated Event = "account_created"
	AccountUpdated Event = "account_updated"
)

// NewBundle loads the embedded message catalog.
func NewBundle() (*i18n.Bundle, error) {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("yaml", yaml.Unmarshal)

	entries, err := locales.ReadDir("locales")
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		if _, err := bundle.LoadMessageFileFS(locales, "locales/"+entry.Name()); err != nil {
			return nil, fmt.Errorf("load %s: %w", entry.Name(), err)
		}
	}

	return bundle, nil
}

// Composer renders notifications and account emails from the catalog.
type Composer struct {
	bundle      *i18n.Bundle
	frontendURL string
	lang        string
}

func NewComposer(bundle *i18n.Bundle, frontendURL string) *Composer {
	return &Composer{
		bundle:      bundle,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		lang:        "en",
	}
}

// PasswordSetLink is the frontend page where a new member chooses a password.
func (c *Composer) PasswordSetLink(token string) string {
	return c.frontendURL + "/reset-password/" + token
}

func displayName(u *database.User) string {
	name := strings.TrimSpace(strings.Join([]string{u.FirstName, u.LastName}, " "))
	if name == "" {
		return u.Email
	}
	return name
}

func (c *Composer) localize(id string, data map[string]string) string {
	localizer := i18n.NewLocalizer(c.bundle, c.lang)
	return localizer.MustLocalize(&i18n.LocalizeConfig{MessageID: id, TemplateData: data})
}

func (c *Composer) data(u *database.User, escape bool) map[string]string {
	name := displayName(u)
	if escape {
		name = html.EscapeString(name)
	}
	return map[string]string{
		"Name":       name,
		"ChatURL":    c.frontendURL + "/dashboard/chat",
		"ProfileURL": c.frontendURL + "/dashboard/profile",
	}
}

// Notification builds the in-app notification for event addressed to u.
func (c *Composer) Notification(event Event, u *database.User) *database.Notification {
	data := c.data(u, true)
	return &database.Notification{
		Title:      c.localize(string(event)+"_title", data),
		Message:    c.localize(string(event)+"_body", data),
		ReceiverID: u.ID,
		Opened:     false,
	}
}

// Email builds the account email for event. token is only used for
// AccountCreated, where the body carries the password-set link.
func (c *Composer) Email(event Event, u *database.User, token string) *mail.Email {
	htmlData := c.data(u, true)
	textData := c.data(u, false)
	if token != "" {
		htmlData["Link"] = c.PasswordSetLink(token)
		textData["Link"] = c.PasswordSetLink(token)
	}

	prefix := string(event) + "_email_"
	return &mail.Email{
		Subject: c.localize(prefix+"subject", textData),
		Name:    displayName(u),
		HTML:    c.localize(prefix+"html", htmlData),
		Text:    c.localize(prefix+"text", textData),
		To:      []string{u.Email},
	}
}
