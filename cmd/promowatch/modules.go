package main

// Blank imports pull in the first-party modules so their init functions
// register them with the core registry.
import (
	_ "github.com/flemzord/promowatch/internal/cron"
	_ "github.com/flemzord/promowatch/internal/gateway"
	_ "github.com/flemzord/promowatch/internal/keyword"
	_ "github.com/flemzord/promowatch/internal/telemetry"
	_ "github.com/flemzord/promowatch/modules/history/sqlite"
	_ "github.com/flemzord/promowatch/modules/notifier/telegram"
	_ "github.com/flemzord/promowatch/modules/source/bridge"
)
