// Package bus connects rgbnode to a pub/sub broker.
//
// Two transports implement Client and are selected by broker URL scheme:
//
//   - MQTTClient (mqtt://, tcp://, ssl://, ws://): QoS 1, clean session,
//     every registered topic is resubscribed on each connect.
//   - NATSClient (nats://): core NATS, topics mapped to subjects by
//     replacing "/" with ".".
//
// Server runs an embedded NATS server so a node can operate without an
// external broker.
//
// # Topics
//
//	esp32/led/set    # immediate color, e.g. "purple" (in)
//	esp32/led/seq    # sequence, e.g. "red,00ff00,#0000FF" (in)
//	esp32/led        # rendered "#RRGGBB" and set echo (out)
//	esp32/status     # "seq_updated" acknowledgement (out)
//
// # Debugging
//
// With mosquitto clients:
//
//	mosquitto_sub -t 'esp32/#' -v
//	mosquitto_pub -t esp32/led/seq -m 'orange,cyan,#202020'
//
// With the nats CLI against the embedded server:
//
//	nats sub "esp32.>" -s nats://localhost:4222
//	nats pub esp32.led.set purple -s nats://localhost:4222
package bus
