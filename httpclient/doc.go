// Package httpclient is the REST client of the back-office. Every request is
// a logical call that may be sent several times: network failures and 5xx
// responses of idempotent requests are retried with exponential backoff,
// and every terminal failure is returned as a *ClassifiedError carrying a
// stable Kind and a message ready for display.
//
// A 401 response clears the session the request was sent with and asks the
// Navigator to show the login screen. Concurrent 401s of the same session
// generation trigger a single navigation.
//
//	client := httpclient.NewBuilder(log).
//		WithBaseURL("https://backoffice.example.com/api").
//		WithSession(store).
//		WithNavigator(nav).
//		Build()
//
//	resp, err := client.Get(ctx, &httpclient.Request{Path: "/restaurants"})
//	if httpclient.IsKind(err, httpclient.KindNotFound) {
//		...
//	}
package httpclient
