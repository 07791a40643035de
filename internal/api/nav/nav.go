// Package nav decides which links the site header shows. It works only from
// the session already decoded from the cookie, so rendering a page never
// waits on the store.
package nav

import (
	"impactlab/internal/domain/model"
	"strings"
)

type Link struct {
	Label  string      `json:"label"`
	Href   model.Route `json:"href"`
	Active bool        `json:"active"`
}

type Menu struct {
	Authenticated bool   `json:"authenticated"`
	IsAdmin       bool   `json:"isAdmin"`
	UserName      string `json:"userName,omitempty"`
	Primary       []Link `json:"primary"`
	Account       []Link `json:"account"`
}

// Build returns the menu for sess on the page at path. A nil session is the
// anonymous menu.
func Build(sess *model.Session, path string) Menu {
	m := Menu{
		Authenticated: sess != nil,
		IsAdmin:       sess.IsAdmin(),
		Primary: []Link{
			link("Home", model.RouteHome, path == "/"),
			link("Rooms", model.RouteRooms, path == model.RouteRooms.String()),
			link("Contact", model.RouteContact, path == model.RouteContact.String()),
		},
	}
	if m.IsAdmin {
		m.Primary = append(m.Primary, link("Admin", model.RouteAdmin, strings.HasPrefix(path, model.RouteAdmin.String())))
	}

	if sess == nil {
		m.Account = []Link{
			link("Login", model.RouteLogin, path == model.RouteLogin.String()),
			link("Register", model.RouteRegister, path == model.RouteRegister.String()),
		}
		return m
	}
	m.UserName = sess.Name
	m.Account = []Link{
		link("My Profile", model.RouteProfile, path == model.RouteProfile.String()),
		link("Logout", model.RouteLogout, false),
	}
	return m
}

func link(label string, href model.Route, active bool) Link {
	return Link{Label: label, Href: href, Active: active}
}

// Has reports whether the menu links to route.
func (m Menu) Has(route model.Route) bool {
	for _, l := range m.Primary {
		if l.Href == route {
			return true
		}
	}
	for _, l := range m.Account {
		if l.Href == route {
			return true
		}
	}
	return false
}
