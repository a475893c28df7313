// Package navigation holds the page catalogue and the role-aware menu.
package navigation

// PageID identifies a page of the shell
type PageID string

const (
	PageDashboard  PageID = "dashboard"
	PageKPIs       PageID = "kpis"
	PagePDI        PageID = "pdi"
	PageAcademy    PageID = "academy"
	PageMural      PageID = "mural"
	PageCheckin    PageID = "checkin"
	PageAssessment PageID = "assessment"
	PageProfile    PageID = "profile"
	PageTeam       PageID = "team"
	PageAnalytics  PageID = "analytics"
	PageUsers      PageID = "users"
	PageExecutive  PageID = "executive"
)

var pageTitles = map[PageID]string{
	PageDashboard:  "Dashboard",
	PageKPIs:       "Meus KPIs",
	PagePDI:        "PDI - Plano de Desenvolvimento Individual",
	PageAcademy:    "Academy - Cursos e Treinamentos",
	PageMural:      "Mural de Comunicação",
	PageCheckin:    "Check-in Emocional",
	PageAssessment: "Teste de Perfil Comportamental",
	PageProfile:    "Meu Perfil",
	PageTeam:       "Minha Equipe",
	PageAnalytics:  "Analytics RH",
	PageUsers:      "Gestão de Usuários",
	PageExecutive:  "Dashboard Executivo",
}

// ParsePage maps an identifier to a known page; anything else is the dashboard
func ParsePage(id string) PageID {
	p := PageID(id)
	if _, ok := pageTitles[p]; ok {
		return p
	}
	return PageDashboard
}

// Title returns the heading of the page body
func (p PageID) Title() string {
	return pageTitles[p]
}

// IsPlaceholder reports whether the page has no content yet
func (p PageID) IsPlaceholder() bool {
	return p != PageDashboard
}
