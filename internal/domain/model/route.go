package model

// Route is a site path a handler can redirect to or render a link for.
type Route string

const (
	RouteHome     Route = "/"
	RouteRooms    Route = "/rooms"
	RouteContact  Route = "/contact"
	RouteAdmin    Route = "/admin"
	RouteProfile  Route = "/profile"
	RouteLogin    Route = "/login"
	RouteRegister Route = "/register"
	RouteLogout   Route = "/logout"
)

func (r Route) String() string {
	return string(r)
}

// LandingRoute is where a freshly authenticated session is sent.
func LandingRoute(s *Session) Route {
	if s.IsAdmin() {
		return RouteAdmin
	}
	return RouteRooms
}
