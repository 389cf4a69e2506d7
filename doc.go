// Package nrfcloud is a small client for the nRF Cloud REST API.
//
// Authenticate with an API key as a bearer token:
//
//	c := nrfcloud.NewClient(os.Getenv("NRFCLOUD_TOKEN"))
//
// List device messages one page at a time:
//
//	params := &nrfcloud.ListMessagesParams{
//	    DeviceID:  nrfcloud.String("nrf-352656100000000"),
//	    PageLimit: nrfcloud.Uint32(50),
//	}
//	for params != nil {
//	    page, err := c.ListMessages(ctx, params)
//	    if err != nil {
//	        return err
//	    }
//	    // use page.Items
//	    params = params.NextPage(page)
//	}
//
// Other GET endpoints can be reached with the generic helpers:
//
//	devices, err := nrfcloud.GetJSON[map[string]any](ctx, c, "/devices")
//
// Failed calls return *Error; IsStatus(err, http.StatusUnauthorized) checks
// for a rejected token. Nothing is retried.
package nrfcloud
