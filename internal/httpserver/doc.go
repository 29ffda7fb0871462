// Package httpserver runs the HTTP listeners of the process: one per link
// group proxy and one for the admin API.
package httpserver
