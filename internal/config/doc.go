// Package config loads the Microsoft Entra ID application credentials and
// related settings from the process environment.
//
// A .env file in the working directory is honored for development setups;
// real deployments are expected to provide the environment directly. The
// client secret is never logged, only its presence.
package config
