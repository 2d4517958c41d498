// Package mqtt publishes bridge events to an MQTT broker.
//
// The bridge is publish-only: processed entity state changes fan out to
// retained per-entity state topics, and the bridge's own availability is
// tracked on a system status topic backed by a Last Will message. Broker
// reconnection is delegated to the paho client's auto-reconnect.
package mqtt
