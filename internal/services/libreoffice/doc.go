// Package libreoffice integrates the LibreOffice command-line converter.
//
// It exposes a Client interface and a CLI implementation that launches
// soffice through the process supervisor, maps run results onto the typed
// failure taxonomy, and locates the produced artifact in the output
// directory. Tests swap in a fake Runner to avoid executing the real
// converter while still exercising classification behaviour.
package libreoffice
