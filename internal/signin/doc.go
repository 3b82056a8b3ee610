// Package signin drives a third-party OAuth redirect flow and reports the outcome.
//
// The flow itself is supplied by the caller as a StartFlowFunc (for example
// oauthflow.BrowserFlow.Start). Initiator calls it with a deep link back into the
// app, activates the created session and registers first-time users with the
// backend API:
//
//	initiator, _ := signin.New(links, apiClient, signin.WithProvider("Google"))
//	result := initiator.Start(ctx, flow.Start)
//	if !result.Success {
//		fmt.Println(result.Message)
//	}
//
// Start never returns an error or panics; every failure becomes a Result.
package signin
