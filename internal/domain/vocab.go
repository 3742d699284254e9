package domain

import "strings"

// Economy is one of the station economy types the game reports.
type Economy int

const (
	EconomyAgri Economy = iota
	EconomyCarrier
	EconomyColony
	EconomyDamaged
	EconomyExtraction
	EconomyHighTech
	EconomyIndustrial
	EconomyMilitary
	EconomyNone
	EconomyPrison
	EconomyRefinery
	EconomyRescue
	EconomyService
	EconomyTerraforming
	EconomyTourism

	// EconomyCount is the size of the economy vocabulary.
	EconomyCount int = iota
)

var economyNames = [EconomyCount]string{
	"agri",
	"carrier",
	"colony",
	"damaged",
	"extraction",
	"hightech",
	"industrial",
	"military",
	"none",
	"prison",
	"refinery",
	"rescue",
	"service",
	"terraforming",
	"tourism",
}

var economyByName = func() map[string]Economy {
	m := make(map[string]Economy, EconomyCount)
	for i, name := range economyNames {
		m[name] = Economy(i)
	}
	return m
}()

func (e Economy) String() string {
	if e < 0 || int(e) >= EconomyCount {
		return "unknown"
	}
	return economyNames[e]
}

// Column is the output column name for the economy share.
func (e Economy) Column() string { return "economy_" + e.String() }

// ParseEconomy maps a game economy symbol ("$economy_HighTech;") or a bare
// name ("HighTech") to an Economy. Matching is case-insensitive.
func ParseEconomy(symbol string) (Economy, bool) {
	name := strings.ToLower(strings.TrimSpace(symbol))
	name = strings.TrimPrefix(name, "$economy_")
	name = strings.TrimSuffix(name, ";")
	e, ok := economyByName[name]
	return e, ok
}

// EconomyShares holds the proportion of each economy at a station. The zero
// value means every economy is absent (0.0).
type EconomyShares [EconomyCount]float64

// Service is one of the station services the game reports.
type Service int

const (
	ServiceApexInterstellar Service = iota
	ServiceAutodock
	ServiceBartender
	ServiceBlackMarket
	ServiceCarrierFuel
	ServiceCarrierManagement
	ServiceCarrierVendor
	ServiceCommodities
	ServiceContacts
	ServiceCrewLounge
	ServiceDock
	ServiceEngineer
	ServiceExploration
	ServiceFacilitator
	ServiceFlightController
	ServiceFrontlineSolutions
	ServiceInitiatives
	ServiceLivery
	ServiceMaterialTrader
	ServiceMissions
	ServiceMissionsGenerated
	ServiceModulePacks
	ServiceOnDockMission
	ServiceOutfitting
	ServicePioneerSupplies
	ServicePowerplay
	ServiceRearm
	ServiceRefuel
	ServiceRegisteringColonisation
	ServiceRepair
	ServiceSearchRescue
	ServiceShipyard
	ServiceShop
	ServiceSocialSpace
	ServiceStationMenu
	ServiceStationOperations
	ServiceTechBroker
	ServiceTuning
	ServiceVistaGenomics
	ServiceVoucherRedemption

	// ServiceCount is the size of the service vocabulary.
	ServiceCount int = iota
)

var serviceNames = [ServiceCount]string{
	"apexinterstellar",
	"autodock",
	"bartender",
	"blackmarket",
	"carrierfuel",
	"carriermanagement",
	"carriervendor",
	"commodities",
	"contacts",
	"crewlounge",
	"dock",
	"engineer",
	"exploration",
	"facilitator",
	"flightcontroller",
	"frontlinesolutions",
	"initiatives",
	"livery",
	"materialtrader",
	"missions",
	"missionsgenerated",
	"modulepacks",
	"ondockmission",
	"outfitting",
	"pioneersupplies",
	"powerplay",
	"rearm",
	"refuel",
	"registeringcolonisation",
	"repair",
	"searchrescue",
	"shipyard",
	"shop",
	"socialspace",
	"stationmenu",
	"stationoperations",
	"techbroker",
	"tuning",
	"vistagenomics",
	"voucherredemption",
}

var serviceByName = func() map[string]Service {
	m := make(map[string]Service, ServiceCount)
	for i, name := range serviceNames {
		m[name] = Service(i)
	}
	return m
}()

func (s Service) String() string {
	if s < 0 || int(s) >= ServiceCount {
		return "unknown"
	}
	return serviceNames[s]
}

// Column is the output column name for the service flag.
func (s Service) Column() string { return "service_" + s.String() }

// ParseService maps a service name to a Service. Matching is
// case-insensitive ("stationMenu" and "stationmenu" are the same service).
func ParseService(name string) (Service, bool) {
	s, ok := serviceByName[strings.ToLower(strings.TrimSpace(name))]
	return s, ok
}

// ServiceSet records which services a station offers. The zero value offers
// none.
type ServiceSet [ServiceCount]bool

// Flag returns 1 if the service is offered and 0 otherwise.
func (s ServiceSet) Flag(svc Service) int {
	if s[svc] {
		return 1
	}
	return 0
}
