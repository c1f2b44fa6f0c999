// Package websocket serves interactive render sessions. A browser opens
// /ws, receives a connect message and then sends render requests carrying a
// selection; each one is answered in order with a dashboard or an error
// message echoing the request id. Heartbeat frames keep the session alive
// and are not answered.
package websocket
