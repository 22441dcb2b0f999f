package metric

// Issue counts by rule type.
var (
	CodeSmells       = define("code_smells", "Code Smells", TypeInt, false)
	Bugs             = define("bugs", "Bugs", TypeInt, false)
	Vulnerabilities  = define("vulnerabilities", "Vulnerabilities", TypeInt, false)
	SecurityHotspots = define("security_hotspots", "Security Hotspots", TypeInt, false)
	Violations       = define("violations", "Issues", TypeInt, false)

	NewCodeSmells       = define("new_code_smells", "New Code Smells", TypeInt, true)
	NewBugs             = define("new_bugs", "New Bugs", TypeInt, true)
	NewVulnerabilities  = define("new_vulnerabilities", "New Vulnerabilities", TypeInt, true)
	NewSecurityHotspots = define("new_security_hotspots", "New Security Hotspots", TypeInt, true)
	NewViolations       = define("new_violations", "New Issues", TypeInt, true)
)

// Issue counts by severity.
var (
	BlockerViolations  = define("blocker_violations", "Blocker Issues", TypeInt, false)
	CriticalViolations = define("critical_violations", "Critical Issues", TypeInt, false)
	MajorViolations    = define("major_violations", "Major Issues", TypeInt, false)
	MinorViolations    = define("minor_violations", "Minor Issues", TypeInt, false)
	InfoViolations     = define("info_violations", "Info Issues", TypeInt, false)

	NewBlockerViolations  = define("new_blocker_violations", "New Blocker Issues", TypeInt, true)
	NewCriticalViolations = define("new_critical_violations", "New Critical Issues", TypeInt, true)
	NewMajorViolations    = define("new_major_violations", "New Major Issues", TypeInt, true)
	NewMinorViolations    = define("new_minor_violations", "New Minor Issues", TypeInt, true)
	NewInfoViolations     = define("new_info_violations", "New Info Issues", TypeInt, true)
)

// Issue counts by resolution and status.
var (
	FalsePositiveIssues = define("false_positive_issues", "False Positive Issues", TypeInt, false)
	AcceptedIssues      = define("accepted_issues", "Accepted Issues", TypeInt, false)
	OpenIssues          = define("open_issues", "Open Issues", TypeInt, false)
	ReopenedIssues      = define("reopened_issues", "Reopened Issues", TypeInt, false)
	ConfirmedIssues     = define("confirmed_issues", "Confirmed Issues", TypeInt, false)
)

// Remediation effort, in minutes.
var (
	TechnicalDebt                = define("sqale_index", "Technical Debt", TypeWorkDuration, false)
	ReliabilityRemediationEffort = define("reliability_remediation_effort", "Reliability Remediation Effort", TypeWorkDuration, false)
	SecurityRemediationEffort    = define("security_remediation_effort", "Security Remediation Effort", TypeWorkDuration, false)

	NewTechnicalDebt                = define("new_technical_debt", "Added Technical Debt", TypeWorkDuration, true)
	NewReliabilityRemediationEffort = define("new_reliability_remediation_effort", "Reliability Remediation Effort on New Code", TypeWorkDuration, true)
	NewSecurityRemediationEffort    = define("new_security_remediation_effort", "Security Remediation Effort on New Code", TypeWorkDuration, true)
)

// Development cost inputs. The overall variant is stored as text, the new
// code variant as a number.
var (
	DevelopmentCost    = define("development_cost", "Development Cost", TypeData, false)
	NewDevelopmentCost = define("new_development_cost", "Development Cost on New Code", TypeFloat, true)
)

// Maintainability.
var (
	DebtRatio                           = define("sqale_debt_ratio", "Technical Debt Ratio", TypePercent, false)
	MaintainabilityRating               = define("sqale_rating", "Maintainability Rating", TypeRating, false)
	EffortToReachMaintainabilityRatingA = define("effort_to_reach_maintainability_rating_a", "Effort to Reach Maintainability Rating A", TypeWorkDuration, false)

	NewDebtRatio             = define("new_sqale_debt_ratio", "Technical Debt Ratio on New Code", TypePercent, true)
	NewMaintainabilityRating = define("new_maintainability_rating", "Maintainability Rating on New Code", TypeRating, true)
)

// Reliability and security.
var (
	ReliabilityRating = define("reliability_rating", "Reliability Rating", TypeRating, false)
	SecurityRating    = define("security_rating", "Security Rating", TypeRating, false)

	NewReliabilityRating = define("new_reliability_rating", "Reliability Rating on New Code", TypeRating, true)
	NewSecurityRating    = define("new_security_rating", "Security Rating on New Code", TypeRating, true)
)

// Security review.
var (
	SecurityHotspotsReviewedStatus = define("security_hotspots_reviewed_status", "Security Hotspots Reviewed Status", TypeInt, false)
	SecurityHotspotsToReviewStatus = define("security_hotspots_to_review_status", "Security Hotspots To Review Status", TypeInt, false)
	SecurityHotspotsReviewed       = define("security_hotspots_reviewed", "Security Hotspots Reviewed", TypePercent, false)
	SecurityReviewRating           = define("security_review_rating", "Security Review Rating", TypeRating, false)

	NewSecurityHotspotsReviewedStatus = define("new_security_hotspots_reviewed_status", "New Security Hotspots Reviewed Status", TypeInt, true)
	NewSecurityHotspotsToReviewStatus = define("new_security_hotspots_to_review_status", "New Security Hotspots To Review Status", TypeInt, true)
	NewSecurityHotspotsReviewed       = define("new_security_hotspots_reviewed", "Security Hotspots Reviewed on New Code", TypePercent, true)
	NewSecurityReviewRating           = define("new_security_review_rating", "Security Review Rating on New Code", TypeRating, true)
)
