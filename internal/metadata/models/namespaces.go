package models

// XML namespaces of the SAML metadata schema family.
const (
	NSMetadata    = "urn:oasis:names:tc:SAML:2.0:metadata"
	NSAssertion   = "urn:oasis:names:tc:SAML:2.0:assertion"
	NSUI          = "urn:oasis:names:tc:SAML:metadata:ui"
	NSRPI         = "urn:oasis:names:tc:SAML:metadata:rpi"
	NSAttr        = "urn:oasis:names:tc:SAML:metadata:attribute"
	NSShibMD      = "urn:mace:shibboleth:metadata:1.0"
	NSDSig        = "http://www.w3.org/2000/09/xmldsig#"
	NSXInclude    = "http://www.w3.org/2001/XInclude"
	NSAtom        = "http://www.w3.org/2005/Atom"
	NSXML         = "http://www.w3.org/XML/1998/namespace"
	NSXMLSchemaIn = "http://www.w3.org/2001/XMLSchema-instance"
)

// NameFormatURI is the default NameFormat for entity attributes.
const NameFormatURI = "urn:oasis:names:tc:SAML:2.0:attrname-format:uri"

// Prefixes maps each namespace to the prefix used when metafed creates elements.
var Prefixes = map[string]string{
	NSMetadata:  "md",
	NSAssertion: "saml",
	NSUI:        "mdui",
	NSRPI:       "mdrpi",
	NSAttr:      "mdattr",
	NSShibMD:    "shibmd",
	NSDSig:      "ds",
	NSXInclude:  "xi",
	NSAtom:      "atom",
}

// aggregateNamespaces are declared on every aggregate root, in this order.
var aggregateNamespaces = []string{NSMetadata, NSAssertion, NSUI, NSRPI, NSAttr, NSShibMD, NSDSig}

// Element local names used across the pipeline.
const (
	TagEntityDescriptor   = "EntityDescriptor"
	TagEntitiesDescriptor = "EntitiesDescriptor"
	TagExtensions         = "Extensions"
	TagSignature          = "Signature"

	TagIDPSSODescriptor             = "IDPSSODescriptor"
	TagSPSSODescriptor              = "SPSSODescriptor"
	TagAttributeAuthorityDescriptor = "AttributeAuthorityDescriptor"
	TagAuthnAuthorityDescriptor     = "AuthnAuthorityDescriptor"
	TagPDPDescriptor                = "PDPDescriptor"
	TagRoleDescriptor               = "RoleDescriptor"
	TagAffiliationDescriptor        = "AffiliationDescriptor"
)

// Attribute names used across the pipeline.
const (
	AttrEntityID      = "entityID"
	AttrID            = "ID"
	AttrName          = "Name"
	AttrValidUntil    = "validUntil"
	AttrCacheDuration = "cacheDuration"
)
