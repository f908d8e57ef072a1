package extraction

// fieldsSchema は抽出サービスに渡すJSON Schema。
// レシートから取り出す5セクション（店舗情報・支払い・明細・割引・会員情報）を定義する。
// model.Extractionの構造とフィールド名はこのスキーマと対応している。
const fieldsSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "Markdown Document Field Extraction Schema",
  "description": "Schema for extracting high-value tabular and form-like information from a markdown document, focusing on structured fields such as IDs, names, addresses, account info, dates, and summary tables.",
  "type": "object",
  "properties": {
    "storeInfo": {
      "title": "Store Information",
      "description": "Key details about the store and transaction.",
      "type": "object",
      "properties": {
        "storeName": {
          "title": "Store Name",
          "description": "The name of the store.",
          "type": "string"
        },
        "address": {
          "title": "Store Address",
          "description": "The address of the store.",
          "type": "string"
        },
        "cashierName": {
          "title": "Cashier Name",
          "description": "The name of the cashier who processed the transaction.",
          "type": "string"
        },
        "transactionDate": {
          "title": "Transaction Date",
          "description": "The date of the transaction.",
          "type": "string"
        },
        "transactionTime": {
          "title": "Transaction Time",
          "description": "The time of the transaction.",
          "type": "string"
        }
      },
      "required": [
        "storeName",
        "address",
        "cashierName",
        "transactionDate",
        "transactionTime"
      ]
    },
    "paymentSummary": {
      "title": "Payment Summary",
      "description": "Summary of payment and transaction details.",
      "type": "object",
      "properties": {
        "paymentMethod": {
          "title": "Payment Method",
          "description": "The method of payment used.",
          "type": "string"
        },
        "totalAmount": {
          "title": "Total Amount",
          "description": "The total amount paid for the transaction.",
          "type": "number"
        },
        "changeGiven": {
          "title": "Change Given",
          "description": "The amount of change given to the customer.",
          "type": "number"
        },
        "itemsSold": {
          "title": "Items Sold",
          "description": "The total number of items sold in the transaction.",
          "type": "number"
        },
        "referenceNumber": {
          "title": "Reference Number",
          "description": "The reference number for the transaction.",
          "type": "string"
        }
      },
      "required": [
        "paymentMethod",
        "totalAmount",
        "changeGiven",
        "itemsSold",
        "referenceNumber"
      ]
    },
    "itemList": {
      "title": "Purchased Items",
      "description": "An exhaustive list of all the items purchased in the transaction. Can be up to 100.",
      "type": "array",
      "items": {
        "title": "Item",
        "description": "Details of a purchased item.",
        "type": "object",
        "properties": {
          "itemName": {
            "title": "Item Name",
            "description": "The name or description of the item.",
            "type": "string"
          },
          "itemPrice": {
            "title": "Item Price",
            "description": "The price of the item.",
            "type": "number"
          },
          "itemType": {
            "title": "Item Type",
            "description": "The type or category of the item (e.g., food, taxable).",
            "type": "string"
          },
          "weight": {
            "title": "Item Weight",
            "description": "The weight of the item, if applicable.",
            "type": "number"
          },
          "unitPrice": {
            "title": "Unit Price",
            "description": "The price per unit weight, if applicable.",
            "type": "number"
          }
        },
        "required": [
          "itemName",
          "itemPrice",
          "itemType",
          "weight",
          "unitPrice"
        ]
      }
    },
    "savingsSummary": {
      "title": "Savings and Coupons Summary",
      "description": "Summary of savings, coupons, and fuel points earned.",
      "type": "object",
      "properties": {
        "totalSavings": {
          "title": "Total Savings",
          "description": "The total amount saved during the transaction.",
          "type": "number"
        },
        "totalCoupons": {
          "title": "Total Coupons",
          "description": "The total value of coupons applied.",
          "type": "number"
        },
        "annualCardSavings": {
          "title": "Annual Card Savings",
          "description": "The total annual savings from the store card.",
          "type": "number"
        },
        "fuelPointsEarned": {
          "title": "Fuel Points Earned",
          "description": "The number of fuel points earned in this transaction.",
          "type": "number"
        },
        "totalFuelPoints": {
          "title": "Total Fuel Points",
          "description": "The total number of fuel points for the current month.",
          "type": "number"
        }
      },
      "required": [
        "totalSavings",
        "totalCoupons",
        "annualCardSavings",
        "fuelPointsEarned",
        "totalFuelPoints"
      ]
    },
    "accountInfo": {
      "title": "Account Information",
      "description": "Key account identifiers and customer information.",
      "type": "object",
      "properties": {
        "customerId": {
          "title": "Customer ID",
          "description": "The customer or loyalty card identifier.",
          "type": "string"
        },
        "cardType": {
          "title": "Card Type",
          "description": "The type of card used for payment.",
          "type": "string"
        },
        "cardLastDigits": {
          "title": "Card Last Digits",
          "description": "The last digits of the card used for payment.",
          "type": "string"
        },
        "aid": {
          "title": "AID",
          "description": "Application Identifier for the card transaction.",
          "type": "string"
        },
        "tc": {
          "title": "TC",
          "description": "Transaction Certificate for the card transaction.",
          "type": "string"
        }
      },
      "required": [
        "customerId",
        "cardType",
        "cardLastDigits",
        "aid",
        "tc"
      ]
    }
  },
  "required": [
    "storeInfo",
    "paymentSummary",
    "itemList",
    "savingsSummary",
    "accountInfo"
  ]
}`
