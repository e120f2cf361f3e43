package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	RouteIndex  = "/"
	RouteLogin  = "/login"
	RouteLogout = "/logout"

	// Pages
	RouteDashboard     = "/dashboard"
	RouteDrugs         = "/drugs"
	RoutePrescriptions = "/prescriptions"
	RouteSales         = "/sales"
	RouteUsers         = "/users"
	RouteReports       = "/reports"

	// System
	RouteHealth  = "/healthz"
	RouteMetrics = "/metrics"

	// Session API
	RouteAPILogin          = "/api/login"
	RouteAPILogout         = "/api/logout"
	RouteAPIProfile        = "/api/profile"
	RouteAPIChangePassword = "/api/profile/password"

	// Remote API pass-through
	RouteAPIUsers             = "/api/users"
	RouteAPIUser              = "/api/users/{id}"
	RouteAPIUserStats         = "/api/users/stats"
	RouteAPIRegister          = "/api/register"
	RouteAPIDrugs             = "/api/drugs"
	RouteAPIDrug              = "/api/drugs/{id}"
	RouteAPIDrugsLowStock     = "/api/drugs/low-stock"
	RouteAPIDrugsOutOfStock   = "/api/drugs/out-of-stock"
	RouteAPIDrugsExpiring     = "/api/drugs/expiring-soon"
	RouteAPIDrugStats         = "/api/drugs/stats"
	RouteAPICategories        = "/api/categories"
	RouteAPICategory          = "/api/categories/{id}"
	RouteAPIManufacturers     = "/api/manufacturers"
	RouteAPIManufacturer      = "/api/manufacturers/{id}"
	RouteAPIStock             = "/api/stock"
	RouteAPIStockByDrug       = "/api/stock/by-drug/{id}"
	RouteAPIPrescriptions     = "/api/prescriptions"
	RouteAPIPrescription      = "/api/prescriptions/{id}"
	RouteAPIPrescriptionsMine = "/api/prescriptions/mine"
	RouteAPIPrescriptionFill  = "/api/prescriptions/{id}/fill"
	RouteAPIPrescriptionStop  = "/api/prescriptions/{id}/cancel"
	RouteAPISales             = "/api/sales"
	RouteAPISale              = "/api/sales/{id}"
	RouteAPISalesToday        = "/api/sales/today"
	RouteAPISalesStats        = "/api/sales/stats"
	RouteAPISalesDailyReport  = "/api/sales/daily-report"
	RouteAPIReportDashboard   = "/api/reports/dashboard"
	RouteAPIReportInventory   = "/api/reports/inventory"
	RouteAPIReportSales       = "/api/reports/sales"

	// Static Asset Routes (patterns)
	RouteStaticCSS = "/css/{file}"
	RouteStaticJS  = "/js/{file}"
)
