package navigation

import "peoplepulse/internal/models"

// Capability gates a menu entry
type Capability string

const (
	CapNone      Capability = ""
	CapTeam      Capability = "team"
	CapAnalytics Capability = "analytics"
	CapUserAdmin Capability = "users"
	CapExecutive Capability = "executive"
)

var roleCapabilities = map[models.Role][]Capability{
	models.RoleGestor:    {CapTeam},
	models.RoleRH:        {CapAnalytics, CapUserAdmin},
	models.RoleDiretoria: {CapAnalytics, CapUserAdmin, CapExecutive},
}

// Can reports whether role holds capability. Every role, known or not,
// holds CapNone.
func Can(role models.Role, capability Capability) bool {
	if capability == CapNone {
		return true
	}
	for _, c := range roleCapabilities[role] {
		if c == capability {
			return true
		}
	}
	return false
}

// Entry is one item of the sidebar
type Entry struct {
	ID    PageID `json:"id"`
	Label string `json:"label"`
	Icon  string `json:"icon"`
}

type menuItem struct {
	Entry
	requires Capability
}

// menuTemplate is the full sidebar in display order
var menuTemplate = []menuItem{
	{Entry{PageDashboard, "Dashboard", "home"}, CapNone},
	{Entry{PageKPIs, "Meus KPIs", "bar-chart"}, CapNone},
	{Entry{PageExecutive, "Dashboard Executivo", "briefcase"}, CapExecutive},
	{Entry{PageAnalytics, "Analytics RH", "trending-up"}, CapAnalytics},
	{Entry{PageUsers, "Usuários", "users"}, CapUserAdmin},
	{Entry{PageTeam, "Minha Equipe", "users"}, CapTeam},
	{Entry{PagePDI, "PDI", "target"}, CapNone},
	{Entry{PageAcademy, "Academy", "graduation-cap"}, CapNone},
	{Entry{PageMural, "Mural", "message-square"}, CapNone},
	{Entry{PageCheckin, "Check-in Emocional", "heart"}, CapNone},
	{Entry{PageAssessment, "Teste de Perfil", "user"}, CapNone},
	{Entry{PageProfile, "Meu Perfil", "user"}, CapNone},
}

// Menu returns the sidebar entries visible to role. Unknown or empty roles
// get the entries every user sees.
func Menu(role models.Role) []Entry {
	entries := make([]Entry, 0, len(menuTemplate))
	for _, item := range menuTemplate {
		if Can(role, item.requires) {
			entries = append(entries, item.Entry)
		}
	}
	return entries
}

// HeaderTitle is the label of the menu entry for page, or "Dashboard"
func HeaderTitle(menu []Entry, page PageID) string {
	for _, e := range menu {
		if e.ID == page {
			return e.Label
		}
	}
	return "Dashboard"
}

// Contains reports whether menu has an entry for page
func Contains(menu []Entry, page PageID) bool {
	for _, e := range menu {
		if e.ID == page {
			return true
		}
	}
	return false
}

// IDs lists the page identifiers of menu in order
func IDs(menu []Entry) []PageID {
	ids := make([]PageID, len(menu))
	for i, e := range menu {
		ids[i] = e.ID
	}
	return ids
}
