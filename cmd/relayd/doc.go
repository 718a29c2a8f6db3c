// Command relayd runs the websocket relay daemon: connection registry,
// envelope router, offline queue, and the backing document store.
package main
