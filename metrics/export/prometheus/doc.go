// Package prometheus renders goAttend engine metrics in the Prometheus text
// exposition format. Mount [Exporter.Handler] wherever the scraper expects it;
// nothing is registered globally.
package prometheus
