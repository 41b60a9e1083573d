package e2e

import (
	"github.com/cucumber/godog"

	"docvault/e2e/steps/access"
	"docvault/e2e/steps/revocation"
	"docvault/e2e/steps/sharing"
)

// RegisterSteps registers every step package against one scenario context.
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	access.RegisterSteps(ctx, tc)
	revocation.RegisterSteps(ctx, tc)
	sharing.RegisterSteps(ctx, tc)
}
