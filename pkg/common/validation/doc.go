// Package validation provides the checks limiter and store constructors run
// before accepting a configuration.
//
// Every helper returns a *errors.ValidationError naming the module and field,
// so a misconfigured gateway fails at startup with a message that points at
// the offending setting.
package validation
