package services

import (
	"github.com/GrantWise/factory-board-sub001/internal/constants"
	"github.com/GrantWise/factory-board-sub001/internal/models/dtos"
)

func defaultImportSettings(batchSize int) map[string]interface{} {
	return map[string]interface{}{
		"duplicate_handling": string(constants.DuplicateUpdate),
		"required_fields":    []string{"order_number", "quantity", "due_date"},
		"batch_size":         batchSize,
		"auto_import":        false,
		"notification_email": "",
	}
}

func restConfig(authType constants.AuthType, authConfig map[string]interface{}, baseURL string, endpoints map[string]string) map[string]interface{} {
	return map[string]interface{}{
		"auth_type":                string(authType),
		"auth_config":              authConfig,
		"base_url":                 baseURL,
		"endpoints":                endpoints,
		"rate_limit_per_minute":    60,
		"retry_attempts":           3,
		"timeout_seconds":          30,
		"polling_interval_minutes": 15,
	}
}

// connectionTemplate builds a fresh skeleton each call so callers may mutate it
func connectionTemplate(systemType constants.SystemType) (*dtos.ConnectionTemplate, bool) {
	tmpl := &dtos.ConnectionTemplate{SystemType: systemType}

	switch systemType {
	case constants.SystemTypeSAPRest:
		tmpl.Description = "SAP S/4HANA OData production order API"
		tmpl.ConnectionConfig = restConfig(constants.AuthTypeOAuth2,
			map[string]interface{}{
				"client_id":     "",
				"client_secret": "",
				"token_url":     "https://your-sap-host/sap/bc/sec/oauth2/token",
				"grant_type":    "client_credentials",
			},
			"https://your-sap-host/sap/opu/odata/sap/API_PRODUCTION_ORDER_2_SRV",
			map[string]string{"orders": "/A_ProductionOrder_2", "operations": "/A_ProductionOrderOperation_2"},
		)
		tmpl.ImportSettings = defaultImportSettings(200)

	case constants.SystemTypeSAPSoap:
		tmpl.Description = "SAP ECC via SOAP web services"
		tmpl.ConnectionConfig = restConfig(constants.AuthTypeBasic,
			map[string]interface{}{"username": "", "password": ""},
			"https://your-sap-host/sap/bc/srt/rfc/sap",
			map[string]string{"orders": "/zprod_orders", "wsdl": "/zprod_orders?wsdl"},
		)
		tmpl.ConnectionConfig["timeout_seconds"] = 60
		tmpl.ImportSettings = defaultImportSettings(100)

	case constants.SystemTypeOracleERP:
		tmpl.Description = "Oracle Fusion Cloud Manufacturing REST API"
		tmpl.ConnectionConfig = restConfig(constants.AuthTypeOAuth2,
			map[string]interface{}{
				"client_id":     "",
				"client_secret": "",
				"token_url":     "https://your-idcs-host/oauth2/v1/token",
				"scopes":        []string{"urn:opc:resource:consumer::all"},
			},
			"https://your-oracle-host/fscmRestApi/resources/11.13.18.05",
			map[string]string{"orders": "/workOrders"},
		)
		tmpl.ImportSettings = defaultImportSettings(250)

	case constants.SystemTypeNetSuite:
		tmpl.Description = "NetSuite SuiteTalk REST work orders"
		tmpl.ConnectionConfig = restConfig(constants.AuthTypeOAuth2,
			map[string]interface{}{
				"client_id":     "",
				"client_secret": "",
				"token_url":     "https://ACCOUNT_ID.suitetalk.api.netsuite.com/services/rest/auth/oauth2/v1/token",
			},
			"https://ACCOUNT_ID.suitetalk.api.netsuite.com/services/rest/record/v1",
			map[string]string{"orders": "/workOrder"},
		)
		tmpl.ConnectionConfig["rate_limit_per_minute"] = 100
		tmpl.ImportSettings = defaultImportSettings(100)

	case constants.SystemTypeDynamics365:
		tmpl.Description = "Dynamics 365 Supply Chain production orders"
		tmpl.ConnectionConfig = restConfig(constants.AuthTypeOAuth2,
			map[string]interface{}{
				"client_id":     "",
				"client_secret": "",
				"token_url":     "https://login.microsoftonline.com/TENANT_ID/oauth2/v2.0/token",
				"scopes":        []string{"https://your-org.operations.dynamics.com/.default"},
			},
			"https://your-org.operations.dynamics.com/data",
			map[string]string{"orders": "/ProductionOrderHeaders"},
		)
		tmpl.ImportSettings = defaultImportSettings(500)

	case constants.SystemTypeGenericRest:
		tmpl.Description = "Any JSON REST API exposing manufacturing orders"
		tmpl.ConnectionConfig = restConfig(constants.AuthTypeAPIKey,
			map[string]interface{}{"api_key": "", "api_key_header": "X-API-Key", "location": "header"},
			"https://erp.example.com/api",
			map[string]string{"orders": "/orders"},
		)
		tmpl.ImportSettings = defaultImportSettings(100)

	case constants.SystemTypeGenericSoap:
		tmpl.Description = "Any SOAP service exposing manufacturing orders"
		tmpl.ConnectionConfig = restConfig(constants.AuthTypeBasic,
			map[string]interface{}{"username": "", "password": ""},
			"https://erp.example.com/soap",
			map[string]string{"orders": "/OrderService", "wsdl": "/OrderService?wsdl"},
		)
		tmpl.ImportSettings = defaultImportSettings(100)

	case constants.SystemTypeCSVFile, constants.SystemTypeExcelFile:
		tmpl.Description = "Orders uploaded as a spreadsheet export"
		tmpl.ConnectionConfig = map[string]interface{}{
			"auth_type":   string(constants.AuthTypeCustom),
			"auth_config": map[string]interface{}{"upload_only": true},
		}
		settings := defaultImportSettings(500)
		settings["field_mappings"] = map[string]string{
			"order_number": "Order No",
			"quantity":     "Qty",
			"due_date":     "Due Date",
		}
		settings["duplicate_handling"] = string(constants.DuplicateSkip)
		tmpl.ImportSettings = settings

	case constants.SystemTypeCustom:
		tmpl.Description = "Custom integration; fill auth_config with whatever the client needs"
		tmpl.ConnectionConfig = map[string]interface{}{
			"auth_type":      string(constants.AuthTypeCustom),
			"auth_config":    map[string]interface{}{},
			"base_url":       "",
			"endpoints":      map[string]string{},
			"retry_attempts": 3,
		}
		tmpl.ImportSettings = defaultImportSettings(100)

	default:
		return nil, false
	}

	return tmpl, true
}
