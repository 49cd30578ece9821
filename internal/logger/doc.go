// Package logger wraps zap for the agent:
//   - a global sugared logger with a compact console encoder,
//   - context helpers (ToContext/FromContext/WithName/WithKV),
//   - level parsing for the config file and the --log-level flag.
//
// Components receive a context and log through the logger it carries, so
// every entry is scoped by the component name ("agent.mqtt", "agent.alarm").
package logger
