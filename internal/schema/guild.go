// internal/schema/guild.go
//
// The guild configuration registry.
//
// Context
// -------
// `Guild()` returns the root Object describing every key a guild
// configuration document may contain.  The tree is declared once, built
// lazily on first use, and shared by every editor session and HTTP handler
// for the life of the process.
//
// Workflow
// --------
//  1. Leaf definitions (ids, user references, thresholds, checks) are
//     declared as small builder funcs.
//  2. `buildGuild` composes them into the document shape.
//  3. `sync.OnceValue` caches the result; callers never see a partially
//     built tree.
//
// Notes
// -----
//   - Building is a pure data declaration and cannot fail at runtime.
//   - Field order here is the order violations are reported in.
package schema

import "sync"

// Cogs lists the feature names accepted by `disabled_cogs`.
var Cogs = []string{
	"Currency",
	"Gatekeeper",
	"Health",
	"Info",
	"Mod",
	"Profile",
	"Quoting",
	"Time",
	"Utility",
}

// ShortlinkProviders lists the names accepted by `shortlinks.whitelist` and
// `shortlinks.blacklist`.
var ShortlinkProviders = []string{"mastodon", "pep", "keybase", "osu"}

// Guild returns the shared, immutable root of the guild configuration schema.
var Guild = sync.OnceValue(buildGuild)

// snowflake is a Discord id.
func snowflake(label string) *Scalar {
	return Int(AtLeast(1)).Labeled(label)
}

// userRef is a user id or a name#1234 tag.
func userRef() *OneOf {
	return Either(
		snowflake("user ID"),
		Str(Matches(`^.+#\d{4}$`, "is not a valid Discord tag")).Labeled("Discord tag"),
	)
}

// threshold is "rate/per", e.g. "5/10".
func threshold() *Scalar {
	return Str(Matches(`^\d+/\d+$`, "is not a valid threshold (rate/per)")).Labeled("threshold")
}

// check is the base shape shared by all gatekeeper checks.
func check() *Object {
	return Strict(Required("enabled", Bool()))
}

// toggle is a check without parameters: `true` or `{enabled: true}`.
func toggle() *OneOf {
	return Either(Bool(), check())
}

func checks() *Object {
	return Strict(
		Optional("block_default_avatars", toggle()),
		Optional("block_bots", toggle()),
		Optional("block_all", toggle()),
		Optional("minimum_creation_time", check().Extend(
			Required("minimum_age", Int(AtLeast(0))),
		)),
		Optional("username_regex", check().Extend(
			Required("regex", Str()),
			Optional("case_sensitive", Bool()),
		)),
	)
}

func gatekeeper() *Object {
	return Strict(
		Optional("enabled", Bool()),
		Optional("ban_threshold", threshold()),
		Optional("bannable_checks", checks()),
		Optional("checks", checks()),
		Optional("auto_lockdown", Strict(
			Optional("threshold", threshold()),
		)),
		Optional("bounce_message", Str()),
		Optional("allowed_users", ListOf(userRef())),
		Optional("broadcast_channel", snowflake("channel ID")),
		Optional("quiet", Bool()),
		Optional("echo_dm_failures", Bool()),
	)
}

func shortlinks() *Object {
	provider := Str(OneOfValues(ShortlinkProviders...)).Labeled("shortlink provider")
	return Strict(
		Required("enabled", Bool()),
		Optional("whitelist", ListOf(provider)),
		Optional("blacklist", ListOf(provider)),
	)
}

func buildGuild() *Object {
	return Strict(
		Optional("editors", ListOf(userRef())),
		Optional("gatekeeper", gatekeeper()),
		Optional("measure_gateway_lag", Bool()),
		Optional("disabled_cogs", ListOf(Str(OneOfValues(Cogs...)).Labeled("cog name"))),
		Optional("publish_quotes", Bool()),
		Optional("shortlinks", shortlinks()),
	)
}

// UserRef exposes the user-reference validator for callers that validate a
// single value, such as tests and CLI helpers.
func UserRef() Node { return userRef() }
