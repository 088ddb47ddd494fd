package config

type App struct {
	Port           string `env:"APP_PORT" default:"8080"`
	DatabaseURL    string `env:"DATABASE_URL,required"`
	JWTSecret      string `env:"JWT_SECRET,required"`
	LoanPeriodDays int    `env:"LOAN_PERIOD_DAYS" default:"14"`
	AdminEmail     string `env:"ADMIN_EMAIL"`
	Env            string `env:"APP_ENV" default:"dev"`
}
