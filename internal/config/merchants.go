package config

import (
	"github.com/spf13/viper"
)

// Merchant is one legal entity payments and receipts are issued for.
type Merchant struct {
	Name        string `mapstructure:"name"`
	FranchiseID int64  `mapstructure:"franchise_id"`
	YooKassa    struct {
		ShopID    string `mapstructure:"shop_id"`
		SecretKey string `mapstructure:"secret_key"`
	} `mapstructure:"yookassa"`
	Sber struct {
		UserName      string `mapstructure:"user_name"`
		Password      string `mapstructure:"password"`
		CallbackToken string `mapstructure:"callback_token"`
	} `mapstructure:"sber"`
	LifePay struct {
		Login  string `mapstructure:"login"`
		APIKey string `mapstructure:"api_key"`
	} `mapstructure:"lifepay"`
}

type Merchants []Merchant

// ByName finds a merchant by its configured name.
func (m Merchants) ByName(name string) (Merchant, bool) {
	for _, mc := range m {
		if mc.Name == name {
			return mc, true
		}
	}
	return Merchant{}, false
}

// ByFranchise finds the merchant that acts for a franchise.
func (m Merchants) ByFranchise(franchiseID int64) (Merchant, bool) {
	for _, mc := range m {
		if mc.FranchiseID == franchiseID {
			return mc, true
		}
	}
	return Merchant{}, false
}

// LoadMerchants reads a YAML file of the form:
//
//	merchants:
//	  - name: domeo_mart
//	    franchise_id: 1
//	    yookassa: {shop_id: "...", secret_key: "..."}
//	    sber: {user_name: "...", password: "...", callback_token: "..."}
//	    lifepay: {login: "...", api_key: "..."}
func LoadMerchants(path string) (Merchants, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	var out Merchants
	if err := v.UnmarshalKey("merchants", &out); err != nil {
		return nil, err
	}
	return out, nil
}
