package server

import (
	"net/http"
	"slices"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/medix-console/access"
)

func (s *Server) initRoutes() {
	s.RegisterRouteFunc("GET /{$}", ChainMiddleware(s.IndexHandler(), s.HTMLMiddleWare()...))

	// LOGIN
	s.RegisterRouteFunc("GET "+RouteLogin, ChainMiddleware(s.LoginPageHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteFunc("POST "+RouteLogin, ChainMiddleware(s.LoginSubmissionHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteFunc("GET "+RouteLogout, ChainMiddleware(s.LogoutHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteFunc("POST "+RouteLogout, ChainMiddleware(s.LogoutHandler(), s.HTMLMiddleWare()...))

	// Pages, each gated by its page policy
	s.RegisterRouteFunc("GET "+RouteDashboard, ChainMiddleware(s.DashboardHandler(), s.HTMLMiddleWare(s.RequirePage(access.PageDashboard))...))
	for _, p := range s.policy.Pages() {
		if p.Name == access.PageDashboard || p.Path == "" {
			continue
		}
		pattern := "GET " + p.Path
		if slices.Contains(s.routes, pattern) {
			log.Warn().Str("page", p.Name).Str("path", p.Path).Msg("Page path already routed, skipping")
			continue
		}
		s.RegisterRouteFunc(pattern, ChainMiddleware(s.PlaceholderPageHandler(p), s.HTMLMiddleWare(s.RequirePage(p.Name))...))
	}

	// Session API
	s.RegisterRouteFunc("POST "+RouteAPILogin, ChainMiddleware(s.APILoginHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("POST "+RouteAPILogout, ChainMiddleware(s.APILogoutHandler(), s.APIMiddleware()...))
	s.registerAPI("GET "+RouteAPIProfile, "", s.profileGet)
	s.registerAPI("PATCH "+RouteAPIProfile, "", s.profileUpdate)
	s.registerAPI("POST "+RouteAPIChangePassword, "", s.passwordChange)

	// Remote API pass-through
	s.registerAPI("GET "+RouteAPIUsers, access.PageUsers, s.usersList)
	s.registerAPI("POST "+RouteAPIUsers, access.PageUsers, s.usersCreate)
	s.registerAPI("GET "+RouteAPIUserStats, access.PageUsers, s.usersStats)
	s.registerAPI("GET "+RouteAPIUser, access.PageUsers, s.usersGet)
	s.registerAPI("PATCH "+RouteAPIUser, access.PageUsers, s.usersUpdate)
	s.registerAPI("DELETE "+RouteAPIUser, access.PageUsers, s.usersDelete)
	s.registerAPI("POST "+RouteAPIRegister, access.PageUsers, s.register)

	s.registerAPI("GET "+RouteAPIDrugs, access.PageDrugs, s.drugsList)
	s.registerAPI("POST "+RouteAPIDrugs, access.PageDrugs, s.drugsCreate)
	s.registerAPI("GET "+RouteAPIDrugsLowStock, access.PageDrugs, s.drugsLowStock)
	s.registerAPI("GET "+RouteAPIDrugsOutOfStock, access.PageDrugs, s.drugsOutOfStock)
	s.registerAPI("GET "+RouteAPIDrugsExpiring, access.PageDrugs, s.drugsExpiringSoon)
	s.registerAPI("GET "+RouteAPIDrugStats, access.PageDrugs, s.drugsStats)
	s.registerAPI("GET "+RouteAPIDrug, access.PageDrugs, s.drugsGet)
	s.registerAPI("PATCH "+RouteAPIDrug, access.PageDrugs, s.drugsUpdate)
	s.registerAPI("DELETE "+RouteAPIDrug, access.PageDrugs, s.drugsDelete)

	s.registerAPI("GET "+RouteAPICategories, access.PageDrugs, s.categoriesList)
	s.registerAPI("POST "+RouteAPICategories, access.PageDrugs, s.categoriesCreate)
	s.registerAPI("PATCH "+RouteAPICategory, access.PageDrugs, s.categoriesUpdate)
	s.registerAPI("DELETE "+RouteAPICategory, access.PageDrugs, s.categoriesDelete)

	s.registerAPI("GET "+RouteAPIManufacturers, access.PageDrugs, s.manufacturersList)
	s.registerAPI("POST "+RouteAPIManufacturers, access.PageDrugs, s.manufacturersCreate)
	s.registerAPI("PATCH "+RouteAPIManufacturer, access.PageDrugs, s.manufacturersUpdate)
	s.registerAPI("DELETE "+RouteAPIManufacturer, access.PageDrugs, s.manufacturersDelete)

	s.registerAPI("GET "+RouteAPIStock, access.PageDrugs, s.stockList)
	s.registerAPI("POST "+RouteAPIStock, access.PageDrugs, s.stockCreate)
	s.registerAPI("GET "+RouteAPIStockByDrug, access.PageDrugs, s.stockByDrug)

	s.registerAPI("GET "+RouteAPIPrescriptions, access.PagePrescriptions, s.prescriptionsList)
	s.registerAPI("POST "+RouteAPIPrescriptions, access.PagePrescriptions, s.prescriptionsCreate)
	s.registerAPI("GET "+RouteAPIPrescriptionsMine, access.PagePrescriptions, s.prescriptionsMine)
	s.registerAPI("GET "+RouteAPIPrescription, access.PagePrescriptions, s.prescriptionsGet)
	s.registerAPI("PATCH "+RouteAPIPrescription, access.PagePrescriptions, s.prescriptionsUpdate)
	s.registerAPI("POST "+RouteAPIPrescriptionFill, access.PagePrescriptions, s.prescriptionsFill)
	s.registerAPI("POST "+RouteAPIPrescriptionStop, access.PagePrescriptions, s.prescriptionsCancel)

	s.registerAPI("GET "+RouteAPISales, access.PageSales, s.salesList)
	s.registerAPI("POST "+RouteAPISales, access.PageSales, s.salesCreate)
	s.registerAPI("GET "+RouteAPISalesToday, access.PageSales, s.salesToday)
	s.registerAPI("GET "+RouteAPISalesStats, access.PageSales, s.salesStats)
	s.registerAPI("GET "+RouteAPISalesDailyReport, access.PageSales, s.salesDailyReport)
	s.registerAPI("GET "+RouteAPISale, access.PageSales, s.salesGet)

	s.registerAPI("GET "+RouteAPIReportDashboard, access.PageDashboard, s.reportsDashboard)
	s.registerAPI("GET "+RouteAPIReportInventory, access.PageReports, s.reportsInventory)
	s.registerAPI("GET "+RouteAPIReportSales, access.PageReports, s.reportsSales)

	// System
	s.RegisterRouteFunc("GET "+RouteHealth, s.HealthHandler())
	s.RegisterRouteHandler("GET "+RouteMetrics, s.metricsHandler())

	s.RegisterRouteFunc("GET "+RouteStaticCSS, ChainMiddleware(s.serveFileHandler(), s.StaticMiddleware()...))
	s.RegisterRouteFunc("GET "+RouteStaticJS, ChainMiddleware(s.serveFileHandler(), s.StaticMiddleware()...))
}

// registerAPI registers a pass-through endpoint and its CORS preflight
func (s *Server) registerAPI(pattern, page string, call apiCall) {
	s.RegisterRouteFunc(pattern, ChainMiddleware(s.apiHandler(call), s.APIMiddleware(s.RequireAPIPage(page))...))

	_, path, _ := strings.Cut(pattern, " ")
	preflight := "OPTIONS " + path
	for _, registered := range s.routes {
		if registered == preflight {
			return
		}
	}
	s.RegisterRouteFunc(preflight, ChainMiddleware(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}, s.CorsMiddleware))
}

func (s *Server) serveFileHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filePath := strings.TrimPrefix(r.URL.Path, "/")
		if filePath == "" {
			http.Error(w, "404 - Page Not Found", http.StatusNotFound)
			return
		}
		err := StreamFile(w, r, filePath)
		if err != nil {
			logError("GET", filePath, err.Error())
			http.Error(w, "404 - Page Not Found", http.StatusNotFound)
			return
		}
	}
}
