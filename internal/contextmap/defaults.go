package contextmap

// Labels maps artifact type codes to display names used when formatting a
// context bundle for a stage prompt.
var Labels = map[string]string{
	"PRD":         "PRODUCT REQUIREMENTS DOCUMENT (PRD)",
	"BAD":         "BUSINESS ANALYSIS DOCUMENT (BAD)",
	"SPRINT_PLAN": "SPRINT PLAN",
	"TAD":         "TECHNICAL ARCHITECTURE DOCUMENT (TAD)",
	"SRR":         "SECURITY REVIEW REPORT (SRR)",
	"UXD":         "USER EXPERIENCE DOCUMENT (UXD)",
	"TIP":         "TECHNICAL IMPLEMENTATION PLAN (TIP)",
	"MTP":         "MASTER TEST PLAN (MTP)",
	"TAR":         "TEST AUTOMATION REPORT (TAR)",
	"BIR":         "BACKEND IMPLEMENTATION REPORT (BIR)",
	"FIR":         "FRONTEND IMPLEMENTATION REPORT (FIR)",
	"DBAR":        "DATABASE ADMINISTRATION REPORT (DBAR)",
	"DIR":         "DEVOPS IMPLEMENTATION REPORT (DIR)",
	"PTR":         "PENETRATION TEST REPORT (PTR)",
	"VERIFY":      "VERIFICATION REPORT",
	"DSP":         "DATA STRATEGY PLAN (DSP)",
	"ADR":         "ANALYSIS REPORT (ADR)",
	"DSR":         "DATA SCIENCE REPORT (DSR)",
}

// defaultTable is the built-in context map. Section names use flexible
// matching, so an exact heading is not required.
var defaultTable = map[string]map[string][]string{
	"biz_analyst": {
		"PRD": {"user stories", "scope", "success criteria", "stakeholders",
			"functional requirements", "non-functional requirements"},
	},
	"architect": {
		"PRD": {"functional requirements", "non-functional requirements",
			"scope", "constraints", "deliverables"},
		"BAD": {"data dictionary", "process flows", "integration points"},
	},
	"security": {
		"PRD": {"non-functional requirements", "compliance", "data classification",
			"user roles", "authentication"},
		"TAD": {"security", "authentication", "authorization", "data architecture",
			"api specifications", "deployment", "infrastructure"},
	},
	"ux_designer": {
		"PRD": {"user stories", "user roles", "functional requirements", "scope"},
		"SRR": {"findings", "recommendations", "authentication requirements"},
	},
	"senior_dev": {
		"PRD": {"functional requirements", "non-functional requirements",
			"deliverables", "constraints"},
		"TAD": {"component", "api specifications", "data architecture",
			"technology stack", "infrastructure", "security"},
		"UXD": {"screens", "components", "navigation"},
	},
	"qa_lead": {
		"PRD": {"user stories", "acceptance criteria", "scope",
			"functional requirements", "non-functional requirements"},
		"TIP": {"api contracts", "project structure", "module boundaries",
			"coding standards"},
		"TAD": {"component", "api specifications", "security"},
		"BIR": {"database schema", "api endpoints", "authentication"},
	},
	"test_auto": {
		"MTP": {"test cases", "test strategy", "coverage targets",
			"acceptance criteria", "test data"},
		"TIP": {"api contracts", "project structure", "module boundaries"},
		"TAD": {"api specifications", "data architecture"},
	},
	"backend_dev": {
		"TIP": {"api contracts", "project structure", "module boundaries",
			"coding standards", "implementation sequence", "dependencies"},
		"TAD": {"api specifications", "data architecture", "authentication",
			"authorization", "component"},
		"MTP": {"api test cases", "backend test cases", "integration tests"},
	},
	"frontend_dev": {
		"TIP": {"project structure", "frontend", "component", "coding standards"},
		"UXD": {"screens", "components", "navigation", "interactions",
			"responsive", "accessibility"},
		"BIR": {"api endpoints", "authentication", "response format"},
	},
	"dba": {
		"BIR": {"database schema", "sql", "migrations", "indexes",
			"queries", "data access"},
		"TAD": {"data architecture", "database", "scalability"},
		"SRR": {"data protection", "encryption", "audit", "compliance"},
	},
	"devops": {
		"TIP": {"project structure", "dependencies", "deployment",
			"environment variables"},
		"TAD": {"infrastructure", "deployment", "scalability",
			"security", "monitoring"},
		"SRR": {"infrastructure", "secrets", "network", "compliance",
			"vulnerability"},
	},
	"pen_test": {
		"SRR": {"threat model", "findings", "attack surface",
			"authentication", "authorization", "compliance"},
		"BIR": {"api endpoints", "authentication", "authorization",
			"database", "input validation", "error handling",
			"middleware", "secrets", "cors"},
		"FIR": {"api integration", "authentication", "input handling",
			"state management", "routing"},
		"DIR": {"docker", "secrets", "environment variables",
			"network", "ci/cd", "tls"},
	},
	"verify": {
		"TAR": {"test cases", "test results", "coverage", "pass",
			"fail", "skip", "assertions"},
		"BIR": {"api endpoints", "database schema", "authentication",
			"implementation"},
		"FIR": {"components", "routing", "state management",
			"implementation"},
		"DIR": {"ci/cd", "test execution", "deployment"},
	},
	"ds_lead": {
		"PRD": {"business goal", "success criteria", "deliverables", "scope"},
	},
	"ds_analyst": {
		"DSP": {"data sources", "ingestion", "cleaning", "methodology"},
	},
	"ds_reporter": {
		"DSP": {"methodology", "success criteria"},
		"ADR": {"findings", "recommendations", "limitations", "visualizations"},
	},
}
