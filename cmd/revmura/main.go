// Package main is the entry point for the Revmura suite host.
//
//	@title						Revmura Suite API
//	@version					1.0
//	@description				Module host with version gating, lifecycle management and a content-type schema store.
//
//	@contact.name				Revmura Support
//	@contact.url				https://github.com/revmura/revmura-suite/issues
//
//	@license.name				GPL-2.0-or-later
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@securityDefinitions.apikey	ApiKeyAuth
//	@in							header
//	@name						X-API-Key
//	@description				Admin API key
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Session token issued by /admin/login (format: "Bearer {token}")
package main

func main() {
	Execute()
}
